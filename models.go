package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EmailStatus tracks email verification progress
type EmailStatus string

const (
	// EmailStatusUnverified is the initial status, no confirmation sent yet
	EmailStatusUnverified EmailStatus = "UNVERIFIED"
	// EmailStatusPending a confirmation email has been sent
	EmailStatusPending EmailStatus = "PENDING"
	// EmailStatusVerified terminal status
	EmailStatusVerified EmailStatus = "VERIFIED"
)

// Valid reports whether s is one of the known statuses
func (s EmailStatus) Valid() bool {
	switch s {
	case EmailStatusUnverified, EmailStatusPending, EmailStatusVerified:
		return true
	}
	return false
}

func (s EmailStatus) String() string {
	return string(s)
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID   `bun:"id,pk,type:uuid" json:"id"`
	Email         string      `bun:"email,notnull,unique" json:"email"`
	Name          string      `bun:"name,notnull" json:"name"`
	PasswordHash  string      `bun:"password_hash,notnull" json:"-"`
	EmailStatus   EmailStatus `bun:"email_status,notnull" json:"email_status"`
	CreatedAt     time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time   `bun:"updated_at,notnull" json:"updated_at"`
}

// UserView is the sanitized projection of a User
type UserView struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	EmailStatus EmailStatus `json:"emailStatus"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// SensitiveUser is the projection used to check credentials, it is the only
// one carrying the password hash.
type SensitiveUser struct {
	UserView
	PasswordHash string `json:"-"`
}

// View returns the sanitized projection
func (u *User) View() *UserView {
	if u == nil {
		return nil
	}
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		EmailStatus: u.EmailStatus,
		CreatedAt:   u.CreatedAt,
	}
}

// Sensitive returns the projection including the password hash
func (u *User) Sensitive() *SensitiveUser {
	if u == nil {
		return nil
	}
	return &SensitiveUser{
		UserView:     *u.View(),
		PasswordHash: u.PasswordHash,
	}
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Registration holds the data needed to create an account.
// ID is optional, the store assigns one when left as uuid.Nil.
type Registration struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Password string
}

// UserPatch is a partial update, nil fields are left untouched
type UserPatch struct {
	Name        *string
	Email       *string
	Password    *string
	EmailStatus *EmailStatus
}

// IsEmpty reports whether the patch carries no fields
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil && p.EmailStatus == nil
}

// LoginResult is returned on successful login
type LoginResult struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// Ptr returns a pointer to v, handy to build a UserPatch
func Ptr[T any](v T) *T {
	return &v
}
