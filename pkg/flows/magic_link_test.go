package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/simple-verify/pkg/errors"
	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/verification"
)

// brokenCountRepo fails every rate limit count
type brokenCountRepo struct {
	verification.Repository
}

func (brokenCountRepo) CountRecentTokens(context.Context, uuid.UUID, verification.FlowType, time.Time) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestMagicLinkRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	result := f.svc.RequestMagicLink(ctx, user.Email)
	require.True(t, result.OK)
	assert.Equal(t, int64(15*60), result.ExpiresIn)

	notice, _ := f.mailer.Last()
	assert.Equal(t, notification.MagicLinkNotice, notice.Type)
	assert.NotContains(t, notice.Data.Data, notification.KeyCode)

	secret := f.lastSecret(t)
	confirmed := f.svc.ConfirmMagicLink(ctx, secret)
	require.True(t, confirmed.OK, confirmed.Message)
	assert.Equal(t, user.ID, *confirmed.UserID)

	assert.Equal(t, apperrors.ErrCodeTokenInvalid, f.svc.ConfirmMagicLink(ctx, secret).Code)
}

func TestMagicLinkExpiresAfterFifteenMinutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	require.True(t, f.svc.RequestMagicLink(ctx, user.Email).OK)
	secret := f.lastSecret(t)

	f.clock.Advance(16 * time.Minute)
	result := f.svc.ConfirmMagicLink(ctx, secret)
	assert.False(t, result.OK)
	assert.Equal(t, apperrors.ErrCodeTokenInvalid, result.Code)

	inspected, err := f.svc.verifier.Inspect(ctx, secret, verification.FlowMagicLink)
	require.NoError(t, err)
	assert.Equal(t, verification.RedeemExpired, inspected.Status)
}

func TestMagicLinkAntiEnumeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "a@x.com")

	assert.Equal(t, f.svc.RequestMagicLink(ctx, "a@x.com"), f.svc.RequestMagicLink(ctx, "nobody@x.com"))
	assert.Len(t, f.mailer.Sent(), 1)
}

func TestMagicLinkSecretIsFlowBound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	require.True(t, f.svc.RequestPasswordReset(ctx, user.Email).OK)
	resetSecret := f.lastSecret(t)

	assert.Equal(t, apperrors.ErrCodeTokenInvalid, f.svc.ConfirmMagicLink(ctx, resetSecret).Code)
	assert.True(t, f.svc.ValidatePasswordReset(ctx, resetSecret).OK, "a rejected cross-flow attempt leaves the token intact")
}

func TestMagicLinkRateLimitFailOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	open, err := NewService(brokenCountRepo{f.repo}, f.directory, f.svc.notifier, f.hasher, "http://x")
	require.NoError(t, err)
	assert.True(t, open.RequestMagicLink(ctx, user.Email).OK)
	assert.Len(t, f.mailer.Sent(), 1)

	closed, err := NewService(brokenCountRepo{f.repo}, f.directory, f.svc.notifier, f.hasher, "http://x", WithFailClosedLimiter())
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, closed.RequestMagicLink(ctx, user.Email).Code)
	assert.Len(t, f.mailer.Sent(), 1)
}

func TestMagicLinkCompressedPolicy(t *testing.T) {
	policies := verification.DefaultPolicies()
	policies[verification.FlowMagicLink] = verification.Policy{TTL: time.Minute, MaxIssuances: 1, Window: 5 * time.Minute}

	f := newFixture(t, WithPolicies(policies))
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	require.True(t, f.svc.RequestMagicLink(ctx, user.Email).OK)
	assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, f.svc.RequestMagicLink(ctx, user.Email).Code)

	f.clock.Advance(5*time.Minute + time.Second)
	result := f.svc.RequestMagicLink(ctx, user.Email)
	require.True(t, result.OK)
	assert.Equal(t, int64(60), result.ExpiresIn)
}
