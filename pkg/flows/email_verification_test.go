package flows

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/simple-verify/pkg/errors"
	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/password"
	"github.com/tendant/simple-verify/pkg/verification"
)

func TestEmailVerificationRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	result := f.svc.SendEmailVerification(ctx, user.ID, "A@x.com ")
	require.True(t, result.OK, result.Message)
	assert.Equal(t, int64(24*60*60), result.ExpiresIn)

	notice, ok := f.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, notification.EmailVerificationNotice, notice.Type)
	assert.Equal(t, "a@x.com", notice.Data.To)
	assert.Len(t, f.lastCode(t), 6)
	assert.Contains(t, notice.Rendered.Text, f.lastCode(t))

	secret := f.lastSecret(t)
	f.clock.Advance(time.Minute)

	result = f.svc.VerifyEmail(ctx, secret)
	require.True(t, result.OK, result.Message)
	require.NotNil(t, result.UserID)
	assert.Equal(t, user.ID, *result.UserID)
	assert.Equal(t, "a@x.com", result.Email)

	stored := f.user(t, user.ID)
	assert.True(t, stored.EmailVerified)
	require.NotNil(t, stored.EmailVerifiedAt)
	assert.True(t, stored.EmailVerifiedAt.Equal(f.clock.Now()))

	again := f.svc.VerifyEmail(ctx, secret)
	assert.False(t, again.OK)
	assert.Equal(t, apperrors.ErrCodeTokenInvalid, again.Code)
	assert.Equal(t, MsgInvalidToken, again.Message)
}

func TestEmailVerificationWithCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	require.True(t, f.svc.SendEmailVerification(ctx, user.ID, user.Email).OK)
	code := f.lastCode(t)

	t.Run("WrongEmail", func(t *testing.T) {
		result := f.svc.VerifyEmailWithCode(ctx, "b@x.com", code)
		assert.Equal(t, apperrors.ErrCodeTokenInvalid, result.Code)
	})

	t.Run("WrongCode", func(t *testing.T) {
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		result := f.svc.VerifyEmailWithCode(ctx, user.Email, wrong)
		assert.Equal(t, apperrors.ErrCodeTokenInvalid, result.Code)
	})

	t.Run("Success", func(t *testing.T) {
		result := f.svc.VerifyEmailWithCode(ctx, " A@X.com", code)
		require.True(t, result.OK, result.Message)
		assert.True(t, f.user(t, user.ID).EmailVerified)
	})

	t.Run("CodeIsSingleUse", func(t *testing.T) {
		result := f.svc.VerifyEmailWithCode(ctx, user.Email, code)
		assert.Equal(t, apperrors.ErrCodeTokenInvalid, result.Code)
	})
}

func TestEmailVerificationResendInvalidatesEarlierTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	require.True(t, f.svc.SendEmailVerification(ctx, user.ID, user.Email).OK)
	first := f.lastSecret(t)
	require.True(t, f.svc.SendEmailVerification(ctx, user.ID, user.Email).OK)
	second := f.lastSecret(t)

	assert.Equal(t, apperrors.ErrCodeTokenInvalid, f.svc.VerifyEmail(ctx, first).Code)
	assert.True(t, f.svc.VerifyEmail(ctx, second).OK)
}

func TestEmailVerificationSkipsIssuance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("UnknownUser", func(t *testing.T) {
		result := f.svc.SendEmailVerification(ctx, uuid.New(), "ghost@x.com")
		assert.True(t, result.OK)
		assert.Empty(t, f.mailer.Sent())
	})

	t.Run("AddressNotOnAccount", func(t *testing.T) {
		user := f.createUser(t, "a@x.com")
		result := f.svc.SendEmailVerification(ctx, user.ID, "other@x.com")
		assert.True(t, result.OK)
		assert.Empty(t, f.mailer.Sent())
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		user := f.createUser(t, "done@x.com")
		require.NoError(t, f.directory.MarkEmailVerified(ctx, user.ID, f.clock.Now()))

		result := f.svc.SendEmailVerification(ctx, user.ID, user.Email)
		assert.True(t, result.OK)
		assert.Equal(t, MsgVerificationSent, result.Message)
		assert.Empty(t, f.mailer.Sent())
		assert.Zero(t, f.countTokens(t, user.ID, verification.FlowEmailVerification))
	})

	t.Run("MissingInput", func(t *testing.T) {
		result := f.svc.SendEmailVerification(ctx, uuid.Nil, "")
		assert.Equal(t, apperrors.ErrCodeInvalidInput, result.Code)
	})
}

func TestEmailVerificationRateLimitBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	for i := 0; i < 3; i++ {
		result := f.svc.SendEmailVerification(ctx, user.ID, user.Email)
		require.True(t, result.OK, "send %d", i+1)
	}

	denied := f.svc.SendEmailVerification(ctx, user.ID, user.Email)
	assert.False(t, denied.OK)
	assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, denied.Code)
	assert.Equal(t, MsgRateLimited, denied.Message)
	assert.Len(t, f.mailer.Sent(), 3)

	f.clock.Advance(time.Hour + time.Second)
	assert.True(t, f.svc.SendEmailVerification(ctx, user.ID, user.Email).OK)
}

func TestEmailVerificationConcurrentRedemption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	require.True(t, f.svc.SendEmailVerification(ctx, user.ID, user.Email).OK)
	secret := f.lastSecret(t)

	const attempts = 12
	results := make([]Result, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = f.svc.VerifyEmail(ctx, secret)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.OK {
			succeeded++
			continue
		}
		assert.Equal(t, apperrors.ErrCodeTokenInvalid, r.Code)
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, f.user(t, user.ID).EmailVerified)
}

func TestEmailVerificationStaleAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	require.True(t, f.svc.SendEmailVerification(ctx, user.ID, user.Email).OK)
	secret := f.lastSecret(t)
	require.NoError(t, f.directory.ChangeEmail(ctx, user.ID, "new@x.com", f.clock.Now()))

	result := f.svc.VerifyEmail(ctx, secret)
	assert.Equal(t, apperrors.ErrCodeTokenInvalid, result.Code)
}

func TestEmailVerificationFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistenceFailure", func(t *testing.T) {
		f := newFixture(t)
		user := f.createUser(t, "a@x.com")
		svc, err := NewService(brokenRepo{f.repo}, f.directory, f.svc.notifier, f.hasher, "http://x")
		require.NoError(t, err)

		result := svc.SendEmailVerification(ctx, user.ID, user.Email)
		assert.Equal(t, apperrors.ErrCodeUnavailable, result.Code)
		assert.Empty(t, f.mailer.Sent(), "nothing is sent when the token was not stored")
	})

	t.Run("DispatchFailure", func(t *testing.T) {
		f := newFixture(t)
		user := f.createUser(t, "a@x.com")
		svc, err := NewService(f.repo, f.directory, failingNotifier{}, password.NewBcryptHasher(4), "http://x")
		require.NoError(t, err)

		result := svc.SendEmailVerification(ctx, user.ID, user.Email)
		assert.Equal(t, apperrors.ErrCodeUnavailable, result.Code)
		assert.Equal(t, MsgUnavailable, result.Message)
	})

	t.Run("FailedResendKeepsEarlierLink", func(t *testing.T) {
		f := newFixture(t)
		user := f.createUser(t, "a@x.com")
		require.True(t, f.svc.SendEmailVerification(ctx, user.ID, user.Email).OK)
		delivered := f.lastSecret(t)

		svc, err := NewService(f.repo, f.directory, failingNotifier{}, f.hasher, "http://x", WithNow(f.clock.Now))
		require.NoError(t, err)
		resend := svc.SendEmailVerification(ctx, user.ID, user.Email)
		assert.Equal(t, apperrors.ErrCodeUnavailable, resend.Code)

		result := f.svc.VerifyEmail(ctx, delivered)
		require.True(t, result.OK, "the delivered link survives an undelivered resend")
		assert.True(t, f.user(t, user.ID).EmailVerified)
	})

	t.Run("DirectoryFailure", func(t *testing.T) {
		f := newFixture(t)
		svc, err := NewService(f.repo, brokenDirectory{f.directory}, f.svc.notifier, f.hasher, "http://x")
		require.NoError(t, err)

		result := svc.SendEmailVerification(ctx, uuid.New(), "a@x.com")
		assert.Equal(t, apperrors.ErrCodeUnavailable, result.Code)
	})
}

func TestGetVerificationStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com")

	status := f.svc.GetVerificationStatus(ctx, user.ID)
	require.True(t, status.OK)
	require.NotNil(t, status.EmailVerified)
	assert.False(t, *status.EmailVerified)
	assert.Nil(t, status.EmailVerifiedAt)

	require.True(t, f.svc.SendEmailVerification(ctx, user.ID, user.Email).OK)
	require.True(t, f.svc.VerifyEmail(ctx, f.lastSecret(t)).OK)

	status = f.svc.GetVerificationStatus(ctx, user.ID)
	require.True(t, status.OK)
	assert.True(t, *status.EmailVerified)
	require.NotNil(t, status.EmailVerifiedAt)

	missing := f.svc.GetVerificationStatus(ctx, uuid.New())
	assert.Equal(t, apperrors.ErrCodeNotFound, missing.Code)
}
