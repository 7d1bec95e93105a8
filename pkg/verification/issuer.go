package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// IssueRequest describes the token to create
type IssueRequest struct {
	UserID   uuid.UUID
	Email    string
	Flow     FlowType
	Metadata map[string]string
}

// Issuer creates and persists new tokens
type Issuer struct {
	repo      Repository
	policies  Policies
	generator Generator
	now       func() time.Time
}

// NewIssuer creates a token issuer
func NewIssuer(repo Repository, policies Policies, opts ...Option) *Issuer {
	o := buildOptions(opts)
	return &Issuer{
		repo:      repo,
		policies:  policies,
		generator: o.generator,
		now:       o.now,
	}
}

// Issue generates a secret (and a code for email verification), stores the
// token and returns the plaintext values. Store failures are wrapped in
// ErrPersistenceFailure; the caller must not notify in that case.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (*IssuedToken, error) {
	policy, err := i.policies.For(req.Flow)
	if err != nil {
		return nil, err
	}

	secret, err := i.generator.NewSecret()
	if err != nil {
		return nil, err
	}

	var code string
	if req.Flow.UsesCode() {
		code, err = i.generator.NewCode()
		if err != nil {
			return nil, err
		}
	}

	now := i.now()
	token := &Token{
		ID:         uuid.New(),
		UserID:     req.UserID,
		Email:      req.Email,
		SecretHash: HashSecret(secret),
		FlowType:   req.Flow,
		CreatedAt:  now,
		ExpiresAt:  now.Add(policy.TTL),
		Metadata:   req.Metadata,
	}
	if code != "" {
		token.CodeHash = HashSecret(code)
	}

	if err := i.repo.CreateToken(ctx, token); err != nil {
		slog.Error("Failed to create verification token", "user_id", req.UserID, "flow", req.Flow, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	slog.Info("Verification token created", "user_id", req.UserID, "flow", req.Flow, "token_id", token.ID, "expires_at", token.ExpiresAt)
	return &IssuedToken{Token: token, Secret: secret, Code: code}, nil
}
