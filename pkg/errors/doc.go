// Package errors provides structured error codes shared by the flows and the
// HTTP layer.
//
// Errors carry an ErrorCode that maps to an HTTP status:
//
//	INVALID_INPUT        400
//	TOKEN_INVALID        401
//	NOT_FOUND            404
//	EMAIL_IN_USE         409
//	RATE_LIMIT_EXCEEDED  429
//	INTERNAL_ERROR       500
//	UNAVAILABLE          503
//
// Usage:
//
//	err := fmt.Errorf("send: %w", errors.Wrap(dbErr, errors.ErrCodeUnavailable, "please try again later"))
//	if e, ok := errors.As(err); ok {
//	    w.WriteHeader(e.HTTPStatusCode())
//	}
//
// TOKEN_INVALID covers unknown, expired and already used tokens alike.
package errors
