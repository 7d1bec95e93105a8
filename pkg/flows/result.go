package flows

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/tendant/simple-verify/pkg/errors"
)

// Messages returned to callers. Failure messages never say why a token was
// rejected or whether an account exists.
const (
	MsgVerificationSent   = "If the address belongs to an unverified account, a verification email has been sent"
	MsgEmailVerified      = "Email verified successfully"
	MsgResetSent          = "If an account exists for that email, a password reset link has been sent"
	MsgResetTokenValid    = "Password reset token is valid"
	MsgPasswordReset      = "Password has been reset"
	MsgEmailChangeSent    = "A confirmation link has been sent to the new address"
	MsgEmailChanged       = "Email address updated"
	MsgMagicLinkSent      = "If an account exists for that email, a sign-in link has been sent"
	MsgMagicLinkConfirmed = "Signed in successfully"
	MsgStatus             = "Verification status"

	MsgInvalidToken = "Invalid or expired token"
	MsgRateLimited  = "Too many requests, please try again later"
	MsgUnavailable  = "Something went wrong, please try again later"
	MsgEmailInUse   = "Email address is already in use"
	MsgInvalidInput = "Invalid request"
)

// Result is the tagged outcome of every public flow operation. Failures carry
// a code from pkg/errors and a caller-safe message; raw store or transport
// errors never appear here.
type Result struct {
	OK      bool                `json:"ok"`
	Code    apperrors.ErrorCode `json:"code,omitempty"`
	Message string              `json:"message"`

	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	ExpiresIn int64      `json:"expires_in,omitempty"` // seconds

	EmailVerified   *bool      `json:"email_verified,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
}

// HTTPStatus maps the result code to an HTTP status
func (r Result) HTTPStatus() int {
	return apperrors.MapErrorCodeToHTTPStatus(r.Code)
}

func success(message string) Result {
	return Result{OK: true, Message: message}
}

func sent(message string, ttl time.Duration) Result {
	return Result{OK: true, Message: message, ExpiresIn: int64(ttl / time.Second)}
}

func redeemed(message string, userID uuid.UUID, email string) Result {
	return Result{OK: true, Message: message, UserID: &userID, Email: email}
}

func failure(code apperrors.ErrorCode, message string) Result {
	return Result{Code: code, Message: message}
}

func invalidToken() Result {
	return failure(apperrors.ErrCodeTokenInvalid, MsgInvalidToken)
}

func rateLimited() Result {
	return failure(apperrors.ErrCodeRateLimitExceeded, MsgRateLimited)
}

func unavailable() Result {
	return failure(apperrors.ErrCodeUnavailable, MsgUnavailable)
}

func invalidInput(message string) Result {
	if message == "" {
		message = MsgInvalidInput
	}
	return failure(apperrors.ErrCodeInvalidInput, message)
}

func emailInUse() Result {
	return failure(apperrors.ErrCodeEmailInUse, MsgEmailInUse)
}
