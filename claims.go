package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the token issued at login. It carries the
// sanitized projection of the user and nothing else.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID      string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	EmailStatus EmailStatus `json:"emailStatus"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ConfirmationClaims binds a confirmation token to the id, email and
// creation time of the account at issuance.
type ConfirmationClaims struct {
	jwt.RegisteredClaims
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Matches runs the binding check against the live record
func (c *ConfirmationClaims) Matches(user *UserView) bool {
	if c == nil || user == nil {
		return false
	}

	if c.UserID != user.ID.String() {
		return false
	}

	if c.Email != user.Email {
		return false
	}

	return sameInstant(c.CreatedAt, user.CreatedAt)
}

func newSessionClaims(user *UserView) *SessionClaims {
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
		UserID:      user.ID.String(),
		Email:       user.Email,
		Name:        user.Name,
		EmailStatus: user.EmailStatus,
		CreatedAt:   user.CreatedAt,
	}
}

func newConfirmationClaims(user *UserView) *ConfirmationClaims {
	return &ConfirmationClaims{
		UserID:    user.ID.String(),
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// normalizeInstant drops location and sub millisecond precision
func normalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func sameInstant(a, b time.Time) bool {
	return normalizeInstant(a).Equal(normalizeInstant(b))
}
