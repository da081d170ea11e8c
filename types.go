package accounts

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds account options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	// GetSessionTokenExpiration in hours, zero issues non expiring session tokens
	GetSessionTokenExpiration() int
	// GetProjectURL is the public base URL used to build confirmation links
	GetProjectURL() string
}

// PasswordHasher hashes and compares passwords.
// ComparePasswordAndHash returns ErrMismatchedHashAndPassword on mismatch,
// any other error means the stored hash could not be used.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService signs and verifies self contained tokens
type TokenService interface {
	Sign(claims jwt.Claims) (string, error)
	Verify(token string, into jwt.Claims, opts VerifyOptions) error
}

// Recipient of an outbound email
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ConfirmAccountMail is the payload handed to the MailSender
type ConfirmAccountMail struct {
	ConfirmationURL string      `json:"confirmation_url"`
	To              []Recipient `json:"to"`
}

// MailSender delivers account emails, a returned error means the email was
// not delivered
type MailSender interface {
	SendConfirmAccountMail(ctx context.Context, mail ConfirmAccountMail) error
}

// Accounts is the user lifecycle surface consumed by the Authenticator and
// the transport layer
type Accounts interface {
	FindByID(ctx context.Context, id uuid.UUID) (*UserView, error)
	FindByEmail(ctx context.Context, email string) (*UserView, error)
	FindByEmailWithSensitiveData(ctx context.Context, email string) (*SensitiveUser, error)
	GetExisting(ctx context.Context, id uuid.UUID) (*UserView, error)
	Create(ctx context.Context, registration Registration) (*UserView, error)
	Update(ctx context.Context, id uuid.UUID, patch UserPatch) (*UserView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SendConfirmationEmail(ctx context.Context, id uuid.UUID) error
	ConfirmEmail(ctx context.Context, id uuid.UUID, token string) (*UserView, error)
}

// AuthService is the login and registration surface used by the command
// handlers and the HTTP controller
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Register(ctx context.Context, registration Registration) (*UserView, error)
	ResendConfirmation(ctx context.Context, id uuid.UUID) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
