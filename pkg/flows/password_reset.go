package flows

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/password"
	"github.com/tendant/simple-verify/pkg/users"
	"github.com/tendant/simple-verify/pkg/verification"
)

// RequestPasswordReset mails a reset link when an account holds email. The
// result is the same whether or not the account exists; only a rate limit
// denial differs.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) Result {
	email = users.NormalizeEmail(email)
	if email == "" {
		return invalidInput("email is required")
	}
	ok := sent(MsgResetSent, s.ttl(verification.FlowPasswordReset))

	user, err := s.lookupByEmail(ctx, email)
	if err != nil {
		slog.Error("Failed to look up user for password reset", "error", err)
		return unavailable()
	}
	if user == nil {
		slog.Info("Password reset requested for unknown email")
		return ok
	}

	if _, err := s.issueAndNotify(ctx, issueRequest{
		userID: user.ID,
		email:  user.Email,
		flow:   verification.FlowPasswordReset,
		notice: notification.PasswordResetNotice,
		path:   PasswordResetPath,
	}); err != nil {
		if errors.Is(err, verification.ErrRateLimitExceeded) {
			return rateLimited()
		}
		// Store and mail failures are logged; the caller sees the usual answer.
		slog.Warn("Password reset not delivered", "user_id", user.ID, "error", err)
	}
	return ok
}

// ValidatePasswordReset checks a reset secret without consuming it
func (s *Service) ValidatePasswordReset(ctx context.Context, secret string) Result {
	result, err := s.verifier.Inspect(ctx, secret, verification.FlowPasswordReset)
	if err != nil {
		return unavailable()
	}
	if !result.OK() {
		slog.Info("Password reset token rejected", "reason", result.Status.String())
		return invalidToken()
	}
	return redeemed(MsgResetTokenValid, result.Token.UserID, result.Token.Email)
}

// CompletePasswordReset redeems a reset secret, stores the new password hash
// and supersedes every other outstanding reset token of the account. The
// password is checked before redemption so a rejected password does not burn
// the token.
func (s *Service) CompletePasswordReset(ctx context.Context, secret, newPassword string) Result {
	if secret == "" {
		return invalidToken()
	}
	if err := password.CheckLength(newPassword, s.minPasswordLength); err != nil {
		return invalidInput(err.Error())
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) || errors.Is(err, password.ErrEmptyPassword) {
			return invalidInput(err.Error())
		}
		slog.Error("Failed to hash password", "error", err)
		return unavailable()
	}

	token, err := s.redeemAndApply(ctx, verification.FlowPasswordReset,
		func() (verification.RedeemResult, error) {
			return s.verifier.RedeemBySecret(ctx, secret, verification.FlowPasswordReset)
		},
		func(ctx context.Context, token *verification.Token, now time.Time) error {
			if err := s.directory.SetPasswordHash(ctx, token.UserID, hash, now); err != nil {
				return err
			}
			n, err := s.repo.InvalidateActiveTokens(ctx, token.UserID, verification.FlowPasswordReset, token.ID, now)
			if err != nil {
				slog.Warn("Password changed but earlier reset links remain valid until they expire",
					"user_id", token.UserID, "error", err)
				return nil
			}
			if n > 0 {
				slog.Info("Password reset tokens superseded", "user_id", token.UserID, "count", n)
			}
			return nil
		})
	if err != nil {
		return ResultFromError(err)
	}

	slog.Info("Password reset completed", "user_id", token.UserID, "token_id", token.ID)
	return redeemed(MsgPasswordReset, token.UserID, "")
}
