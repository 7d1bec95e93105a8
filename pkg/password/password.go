// Package password hashes new passwords and enforces the minimum length
// accepted by the password reset flow.
package password

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// DefaultMinLength is the minimum password length when none is configured
const DefaultMinLength = 8

var (
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrTooShort      = errors.New("password is too short")
	ErrTooLong       = errors.New("password is too long")
)

// Hasher defines the interface for password hashing implementations
type Hasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, hashedPassword string) (bool, error)
}

// BcryptHasher implements Hasher with bcrypt
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher creates a bcrypt hasher; a zero cost uses bcrypt.DefaultCost
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash implements Hasher.Hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	// bcrypt only looks at the first 72 bytes
	if len(password) > 72 {
		return "", ErrTooLong
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedBytes), nil
}

// Verify implements Hasher.Verify
func (h *BcryptHasher) Verify(password, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Password doesn't match, but not an error
		}
		return false, err
	}

	return true, nil
}

// CheckLength returns ErrTooShort when password has fewer than min characters
func CheckLength(password string, min int) error {
	if min <= 0 {
		min = DefaultMinLength
	}
	if password == "" {
		return ErrEmptyPassword
	}
	if utf8.RuneCountInString(password) < min {
		return fmt.Errorf("%w: minimum length is %d", ErrTooShort, min)
	}
	return nil
}
