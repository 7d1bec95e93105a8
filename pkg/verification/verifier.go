package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Verifier redeems tokens. Both entry points end in Repository.RedeemToken, the
// single conditional write that decides which request wins.
type Verifier struct {
	repo Repository
	now  func() time.Time
}

// NewVerifier creates a token verifier
func NewVerifier(repo Repository, opts ...Option) *Verifier {
	o := buildOptions(opts)
	return &Verifier{repo: repo, now: o.now}
}

// RedeemBySecret consumes the token for secret if it belongs to flow and is
// still redeemable. The returned error is only set for store failures.
func (v *Verifier) RedeemBySecret(ctx context.Context, secret string, flow FlowType) (RedeemResult, error) {
	if secret == "" {
		return RedeemResult{Status: RedeemNotFound}, nil
	}
	return v.redeem(ctx, HashSecret(secret), flow)
}

// RedeemByCode resolves the newest unused token for (email, flow, code) and
// redeems it through the same path as RedeemBySecret.
func (v *Verifier) RedeemByCode(ctx context.Context, email, code string, flow FlowType) (RedeemResult, error) {
	if !flow.UsesCode() {
		return RedeemResult{}, fmt.Errorf("%w: %s", ErrCodeNotSupported, flow)
	}
	if email == "" || code == "" {
		return RedeemResult{Status: RedeemNotFound}, nil
	}

	token, err := v.repo.FindLatestUnusedByCode(ctx, email, flow, HashSecret(code))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			slog.Info("No token matches code", "email", email, "flow", flow)
			return RedeemResult{Status: RedeemNotFound}, nil
		}
		slog.Error("Failed to look up token by code", "flow", flow, "error", err)
		return RedeemResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	return v.redeem(ctx, token.SecretHash, flow)
}

// Inspect classifies a secret without consuming it
func (v *Verifier) Inspect(ctx context.Context, secret string, flow FlowType) (RedeemResult, error) {
	if secret == "" {
		return RedeemResult{Status: RedeemNotFound}, nil
	}

	token, err := v.repo.GetTokenBySecretHash(ctx, HashSecret(secret))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return RedeemResult{Status: RedeemNotFound}, nil
		}
		return RedeemResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if status := classify(token, flow, v.now()); status != RedeemOK {
		return RedeemResult{Status: status}, nil
	}
	return RedeemResult{Status: RedeemOK, Token: token}, nil
}

func (v *Verifier) redeem(ctx context.Context, secretHash string, flow FlowType) (RedeemResult, error) {
	now := v.now()
	token, err := v.repo.RedeemToken(ctx, secretHash, flow, now)
	if err == nil {
		slog.Info("Verification token redeemed", "token_id", token.ID, "user_id", token.UserID, "flow", flow)
		return RedeemResult{Status: RedeemOK, Token: token}, nil
	}
	if !errors.Is(err, ErrTokenNotFound) {
		slog.Error("Failed to redeem verification token", "flow", flow, "error", err)
		return RedeemResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	// Nothing was redeemed; look the row up only to explain why.
	existing, err := v.repo.GetTokenBySecretHash(ctx, secretHash)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			slog.Info("Verification token not found", "flow", flow)
			return RedeemResult{Status: RedeemNotFound}, nil
		}
		slog.Error("Failed to classify failed redemption", "flow", flow, "error", err)
		return RedeemResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	status := classify(existing, flow, now)
	if status == RedeemOK {
		// The guarded update did not match, so this request never owns the token.
		status = RedeemAlreadyUsed
	}
	slog.Info("Verification token not redeemable", "token_id", existing.ID, "flow", flow, "reason", status.String())
	return RedeemResult{Status: status}, nil
}

func classify(token *Token, flow FlowType, now time.Time) RedeemStatus {
	switch {
	case token.FlowType != flow:
		return RedeemNotFound
	case token.UsedAt != nil:
		return RedeemAlreadyUsed
	case token.Expired(now):
		return RedeemExpired
	}
	return RedeemOK
}
