package flows

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/users"
	"github.com/tendant/simple-verify/pkg/verification"
)

// RequestEmailChange issues a token bound to newEmail and mails the new
// address only. The current address is kept in the token metadata.
func (s *Service) RequestEmailChange(ctx context.Context, userID uuid.UUID, currentEmail, newEmail string) Result {
	currentEmail = users.NormalizeEmail(currentEmail)
	newEmail = users.NormalizeEmail(newEmail)
	if userID == uuid.Nil || currentEmail == "" || newEmail == "" {
		return invalidInput("user_id, current_email and new_email are required")
	}
	if currentEmail == newEmail {
		return invalidInput("new email must differ from the current email")
	}

	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return invalidInput("")
		}
		slog.Error("Failed to look up user for email change", "user_id", userID, "error", err)
		return unavailable()
	}
	if user.Email != currentEmail {
		slog.Warn("Email change requested with a stale current email", "user_id", userID)
		return invalidInput("")
	}

	owner, err := s.lookupByEmail(ctx, newEmail)
	if err != nil {
		slog.Error("Failed to check new email", "user_id", userID, "error", err)
		return unavailable()
	}
	if owner != nil && owner.ID != user.ID {
		slog.Info("Email change target already claimed", "user_id", userID)
		return emailInUse()
	}

	if _, err := s.issueAndNotify(ctx, issueRequest{
		userID:   user.ID,
		email:    newEmail,
		flow:     verification.FlowEmailChange,
		notice:   notification.EmailChangeNotice,
		path:     EmailChangePath,
		metadata: map[string]string{verification.MetadataCurrentEmail: currentEmail},
		extra:    map[string]string{notification.KeyCurrentEmail: currentEmail},
	}); err != nil {
		return ResultFromError(err)
	}
	return sent(MsgEmailChangeSent, s.ttl(verification.FlowEmailChange))
}

// ConfirmEmailChange redeems an email change secret and replaces the stored
// address with the one the token is bound to
func (s *Service) ConfirmEmailChange(ctx context.Context, secret string) Result {
	if secret == "" {
		return invalidToken()
	}
	token, err := s.redeemAndApply(ctx, verification.FlowEmailChange,
		func() (verification.RedeemResult, error) {
			return s.verifier.RedeemBySecret(ctx, secret, verification.FlowEmailChange)
		},
		func(ctx context.Context, token *verification.Token, now time.Time) error {
			if err := s.directory.ChangeEmail(ctx, token.UserID, token.Email, now); err != nil {
				if errors.Is(err, users.ErrEmailTaken) {
					return ErrEmailAlreadyInUse
				}
				return err
			}
			return nil
		})
	if err != nil {
		return ResultFromError(err)
	}

	slog.Info("Email changed", "user_id", token.UserID, "token_id", token.ID)
	return redeemed(MsgEmailChanged, token.UserID, token.Email)
}
