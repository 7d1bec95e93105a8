package verification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Limiter admits or denies token issuance per (identity, flow) by counting the
// rows already in the token store inside the flow's trailing window.
//
// If the count query fails the Limiter fails open and allows the issuance, so a
// storage fault does not lock users out of account recovery. Use
// WithFailClosed to deny instead. Concurrent requests may each observe the same
// count, so at most one extra issuance per racing request can slip through.
type Limiter struct {
	repo     Repository
	policies Policies
	now      func() time.Time
	failOpen bool
}

// NewLimiter creates a store-backed issuance limiter
func NewLimiter(repo Repository, policies Policies, opts ...Option) *Limiter {
	o := buildOptions(opts)
	return &Limiter{
		repo:     repo,
		policies: policies,
		now:      o.now,
		failOpen: !o.failClosed,
	}
}

// Allow reports whether another token may be issued for userID and flow
func (l *Limiter) Allow(ctx context.Context, userID uuid.UUID, flow FlowType) bool {
	policy, err := l.policies.For(flow)
	if err != nil {
		slog.Error("No rate limit policy for flow", "flow", flow, "error", err)
		return false
	}

	since := l.now().Add(-policy.Window)
	count, err := l.repo.CountRecentTokens(ctx, userID, flow, since)
	if err != nil {
		slog.Warn("Failed to count recent tokens", "user_id", userID, "flow", flow, "fail_open", l.failOpen, "error", err)
		return l.failOpen
	}

	if count >= int64(policy.MaxIssuances) {
		slog.Warn("Rate limit exceeded", "user_id", userID, "flow", flow, "count", count, "limit", policy.MaxIssuances)
		return false
	}
	return true
}
