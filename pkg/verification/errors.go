package verification

import "errors"

var (
	// ErrTokenNotFound is returned when no token matches the given secret or code
	ErrTokenNotFound = errors.New("verification token not found")

	// ErrTokenExpired is returned when a verification token has expired
	ErrTokenExpired = errors.New("verification token has expired")

	// ErrTokenAlreadyUsed is returned when a verification token has already been used
	ErrTokenAlreadyUsed = errors.New("verification token has already been used")

	// ErrRateLimitExceeded is returned when too many tokens were issued for an identity and flow
	ErrRateLimitExceeded = errors.New("too many requests, please try again later")

	// ErrPersistenceFailure wraps store errors raised while issuing or redeeming
	ErrPersistenceFailure = errors.New("verification token store failure")

	// ErrInvalidFlowType is returned for flow types outside the supported set
	ErrInvalidFlowType = errors.New("invalid flow type")

	// ErrCodeNotSupported is returned when code redemption is attempted for a flow without codes
	ErrCodeNotSupported = errors.New("code redemption not supported for flow")
)
