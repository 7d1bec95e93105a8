package flows

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/tendant/simple-verify/pkg/errors"
	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/users"
	"github.com/tendant/simple-verify/pkg/verification"
)

// SendEmailVerification issues a verification token for the account's email
// and mails a link plus a 6 digit code. Earlier verification tokens of the
// account stop working once the new one is issued.
//
// Unknown accounts, mismatched addresses and already verified emails get the
// same success result without any issuance.
func (s *Service) SendEmailVerification(ctx context.Context, userID uuid.UUID, email string) Result {
	email = users.NormalizeEmail(email)
	if userID == uuid.Nil || email == "" {
		return invalidInput("user_id and email are required")
	}
	ok := sent(MsgVerificationSent, s.ttl(verification.FlowEmailVerification))

	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			slog.Info("Verification requested for unknown user", "user_id", userID)
			return ok
		}
		slog.Error("Failed to look up user", "user_id", userID, "error", err)
		return unavailable()
	}
	if user.Email != email {
		slog.Warn("Verification requested for an address the account does not hold", "user_id", userID)
		return ok
	}
	if user.EmailVerified {
		slog.Info("Email already verified", "user_id", userID)
		return ok
	}

	issued, err := s.issueAndNotify(ctx, issueRequest{
		userID: user.ID,
		email:  email,
		flow:   verification.FlowEmailVerification,
		notice: notification.EmailVerificationNotice,
		path:   EmailVerificationPath,
	})
	if err != nil {
		// An undelivered resend leaves the earlier link and code usable.
		return ResultFromError(err)
	}
	// Only the newest link and code stay valid.
	if n, err := s.repo.InvalidateActiveTokens(ctx, user.ID, verification.FlowEmailVerification, issued.Token.ID, s.now()); err != nil {
		slog.Error("Failed to invalidate earlier verification tokens", "user_id", user.ID, "error", err)
	} else if n > 0 {
		slog.Info("Earlier verification tokens invalidated", "user_id", user.ID, "count", n)
	}
	return ok
}

// VerifyEmail redeems a verification secret and marks the bound email verified
func (s *Service) VerifyEmail(ctx context.Context, secret string) Result {
	if secret == "" {
		return invalidToken()
	}
	return s.verifyEmail(ctx, func() (verification.RedeemResult, error) {
		return s.verifier.RedeemBySecret(ctx, secret, verification.FlowEmailVerification)
	})
}

// VerifyEmailWithCode redeems the newest unused verification token matching
// email and code. With a code attempt limiter configured, guesses per address
// are capped.
func (s *Service) VerifyEmailWithCode(ctx context.Context, email, code string) Result {
	email = users.NormalizeEmail(email)
	if email == "" || code == "" {
		return invalidToken()
	}

	key := codeAttemptKey(verification.FlowEmailVerification, email)
	if !s.allowCodeAttempt(ctx, key) {
		return rateLimited()
	}
	result := s.verifyEmail(ctx, func() (verification.RedeemResult, error) {
		return s.verifier.RedeemByCode(ctx, email, code, verification.FlowEmailVerification)
	})
	if result.OK && s.codeAttempts != nil {
		if err := s.codeAttempts.Reset(ctx, key); err != nil {
			slog.Warn("Failed to clear code attempts", "user_id", result.UserID, "error", err)
		}
	}
	return result
}

func codeAttemptKey(flow verification.FlowType, email string) string {
	return "code:" + string(flow) + ":" + email
}

// allowCodeAttempt follows the issuance limiter: an unreadable count allows
// the attempt unless the service was built fail closed.
func (s *Service) allowCodeAttempt(ctx context.Context, key string) bool {
	if s.codeAttempts == nil {
		return true
	}
	allowed, err := s.codeAttempts.Allow(ctx, key)
	if err != nil {
		slog.Warn("Code attempt limiter unavailable", "fail_closed", s.failClosed, "error", err)
		return !s.failClosed
	}
	if !allowed {
		slog.Warn("Code attempts exhausted")
	}
	return allowed
}

func (s *Service) verifyEmail(ctx context.Context, redeem func() (verification.RedeemResult, error)) Result {
	token, err := s.redeemAndApply(ctx, verification.FlowEmailVerification, redeem, s.markEmailVerified)
	if err != nil {
		return ResultFromError(err)
	}
	slog.Info("Email verified", "user_id", token.UserID, "token_id", token.ID)
	return redeemed(MsgEmailVerified, token.UserID, token.Email)
}

func (s *Service) markEmailVerified(ctx context.Context, token *verification.Token, now time.Time) error {
	user, err := s.directory.FindByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	if user.Email != token.Email {
		return errStaleBinding
	}
	return s.directory.MarkEmailVerified(ctx, user.ID, now)
}

// GetVerificationStatus reports whether the account's email is verified
func (s *Service) GetVerificationStatus(ctx context.Context, userID uuid.UUID) Result {
	if userID == uuid.Nil {
		return invalidInput("user_id is required")
	}
	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return failure(apperrors.ErrCodeNotFound, "User not found")
		}
		slog.Error("Failed to get verification status", "user_id", userID, "error", err)
		return unavailable()
	}

	verified := user.EmailVerified
	result := redeemed(MsgStatus, user.ID, user.Email)
	result.EmailVerified = &verified
	result.EmailVerifiedAt = user.EmailVerifiedAt
	return result
}
