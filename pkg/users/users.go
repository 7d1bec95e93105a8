// Package users is the user directory the verification flows read from and
// apply their side effects to.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
)

// User is the subset of the account record the flows need
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name,omitempty"`
	PasswordHash    string     `json:"password_hash,omitempty"`
	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Directory looks up users and applies flow side effects
type Directory interface {
	// Create adds a user; the email must not already be claimed
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByEmail matches on the normalized address
	FindByEmail(ctx context.Context, email string) (*User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
	// ChangeEmail replaces the stored email and marks it verified at at.
	// It returns ErrEmailTaken if another account already holds newEmail.
	ChangeEmail(ctx context.Context, id uuid.UUID, newEmail string, at time.Time) error
}

// NormalizeEmail trims surrounding space and lowercases the address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
