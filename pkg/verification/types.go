package verification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FlowType identifies which identity flow a token belongs to
type FlowType string

const (
	FlowEmailVerification FlowType = "email_verification"
	FlowPasswordReset     FlowType = "password_reset"
	FlowEmailChange       FlowType = "email_change"
	FlowMagicLink         FlowType = "magic_link"
)

// AllFlowTypes lists every supported flow type
var AllFlowTypes = []FlowType{
	FlowEmailVerification,
	FlowPasswordReset,
	FlowEmailChange,
	FlowMagicLink,
}

// Valid reports whether f is one of the supported flow types
func (f FlowType) Valid() bool {
	switch f {
	case FlowEmailVerification, FlowPasswordReset, FlowEmailChange, FlowMagicLink:
		return true
	}
	return false
}

// UsesCode reports whether tokens of this flow carry a numeric code
func (f FlowType) UsesCode() bool {
	return f == FlowEmailVerification
}

// ParseFlowType converts a stored or user supplied string to a FlowType
func ParseFlowType(s string) (FlowType, error) {
	f := FlowType(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: unknown flow type %q", ErrInvalidFlowType, s)
	}
	return f, nil
}

// Metadata keys
const (
	MetadataCurrentEmail = "current_email"
)

// Token is the persisted verification token row.
//
// SecretHash and CodeHash hold digests of the plaintext secret and code. The
// plaintext values only exist in the IssuedToken returned by the Issuer.
type Token struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	Email      string            `json:"email"`
	SecretHash string            `json:"secret_hash"`
	CodeHash   string            `json:"code_hash,omitempty"`
	FlowType   FlowType          `json:"flow_type"`
	ExpiresAt  time.Time         `json:"expires_at"`
	CreatedAt  time.Time         `json:"created_at"`
	UsedAt     *time.Time        `json:"used_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Redeemable reports whether the token can still be redeemed at now
func (t *Token) Redeemable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// Expired reports whether the token's expiry has passed at now
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IssuedToken is the result of a successful issuance and the only place the
// plaintext secret and code are available.
type IssuedToken struct {
	Token  *Token
	Secret string
	Code   string
}

// ExpiresIn returns the remaining lifetime of the issued token relative to now
func (it *IssuedToken) ExpiresIn(now time.Time) time.Duration {
	return it.Token.ExpiresAt.Sub(now)
}

// RedeemStatus is the outcome of a redemption attempt
type RedeemStatus int

const (
	RedeemOK RedeemStatus = iota
	RedeemNotFound
	RedeemExpired
	RedeemAlreadyUsed
)

func (s RedeemStatus) String() string {
	switch s {
	case RedeemOK:
		return "ok"
	case RedeemNotFound:
		return "not_found"
	case RedeemExpired:
		return "expired"
	case RedeemAlreadyUsed:
		return "already_used"
	}
	return "unknown"
}

// RedeemResult carries the redemption status and, on success, the consumed token
type RedeemResult struct {
	Status RedeemStatus
	Token  *Token
}

// OK reports whether the redemption succeeded
func (r RedeemResult) OK() bool {
	return r.Status == RedeemOK
}

// Err maps a failed redemption to its sentinel error, nil on success
func (r RedeemResult) Err() error {
	switch r.Status {
	case RedeemOK:
		return nil
	case RedeemExpired:
		return ErrTokenExpired
	case RedeemAlreadyUsed:
		return ErrTokenAlreadyUsed
	default:
		return ErrTokenNotFound
	}
}
