package flows

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/users"
	"github.com/tendant/simple-verify/pkg/verification"
)

// RequestMagicLink mails a single-use sign-in link when an account holds
// email. Like RequestPasswordReset, the answer does not reveal whether it does.
func (s *Service) RequestMagicLink(ctx context.Context, email string) Result {
	email = users.NormalizeEmail(email)
	if email == "" {
		return invalidInput("email is required")
	}
	ok := sent(MsgMagicLinkSent, s.ttl(verification.FlowMagicLink))

	user, err := s.lookupByEmail(ctx, email)
	if err != nil {
		slog.Error("Failed to look up user for magic link", "error", err)
		return unavailable()
	}
	if user == nil {
		slog.Info("Magic link requested for unknown email")
		return ok
	}

	if _, err := s.issueAndNotify(ctx, issueRequest{
		userID: user.ID,
		email:  user.Email,
		flow:   verification.FlowMagicLink,
		notice: notification.MagicLinkNotice,
		path:   MagicLinkPath,
	}); err != nil {
		if errors.Is(err, verification.ErrRateLimitExceeded) {
			return rateLimited()
		}
		slog.Warn("Magic link not delivered", "user_id", user.ID, "error", err)
	}
	return ok
}

// ConfirmMagicLink redeems a sign-in secret. Success means the holder of the
// bound address authenticated as the returned user; issuing a session is up
// to the caller.
func (s *Service) ConfirmMagicLink(ctx context.Context, secret string) Result {
	if secret == "" {
		return invalidToken()
	}
	token, err := s.redeemAndApply(ctx, verification.FlowMagicLink,
		func() (verification.RedeemResult, error) {
			return s.verifier.RedeemBySecret(ctx, secret, verification.FlowMagicLink)
		},
		func(ctx context.Context, token *verification.Token, _ time.Time) error {
			user, err := s.directory.FindByID(ctx, token.UserID)
			if err != nil {
				return err
			}
			if user.Email != token.Email {
				return errStaleBinding
			}
			return nil
		})
	if err != nil {
		return ResultFromError(err)
	}

	slog.Info("Magic link login", "user_id", token.UserID, "token_id", token.ID)
	return redeemed(MsgMagicLinkConfirmed, token.UserID, token.Email)
}
