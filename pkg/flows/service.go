package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/tendant/simple-verify/pkg/errors"
	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/password"
	"github.com/tendant/simple-verify/pkg/users"
	"github.com/tendant/simple-verify/pkg/verification"
)

// Link paths appended to the base URL
const (
	EmailVerificationPath = "/email-verification/verify"
	PasswordResetPath     = "/password-reset"
	EmailChangePath       = "/email-change/confirm"
	MagicLinkPath         = "/magic-link/confirm"
)

// Notifier delivers a rendered notice; *notification.NotificationManager satisfies it
type Notifier interface {
	Send(noticeType notification.NoticeType, data notification.NotificationData) error
}

// AttemptLimiter caps guesses per key; ratelimit.KeyLimiter satisfies it
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type options struct {
	policies          verification.Policies
	now               func() time.Time
	generator         verification.Generator
	minPasswordLength int
	failClosed        bool
	codeAttempts      AttemptLimiter
}

// Option configures a Service
type Option func(*options)

// WithPolicies replaces the TTL and rate limit table
func WithPolicies(p verification.Policies) Option {
	return func(o *options) {
		if p != nil {
			o.policies = p
		}
	}
}

// WithNow injects the clock used by every component of the service
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithGenerator replaces the secret and code generator
func WithGenerator(g verification.Generator) Option {
	return func(o *options) {
		if g != nil {
			o.generator = g
		}
	}
}

// WithMinPasswordLength sets the minimum length accepted by CompletePasswordReset
func WithMinPasswordLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.minPasswordLength = n
		}
	}
}

// WithFailClosedLimiter denies issuance when the rate limit count cannot be read
func WithFailClosedLimiter() Option {
	return func(o *options) {
		o.failClosed = true
	}
}

// WithCodeAttemptLimiter caps VerifyEmailWithCode guesses per address. A
// successful verification clears the count.
func WithCodeAttemptLimiter(l AttemptLimiter) Option {
	return func(o *options) {
		o.codeAttempts = l
	}
}

// Service runs the email verification, password reset, email change and
// magic link flows on top of one Issuer, Verifier and Limiter.
type Service struct {
	directory users.Directory
	repo      verification.Repository
	notifier  Notifier
	hasher    password.Hasher
	baseURL   string

	policies verification.Policies
	limiter  *verification.Limiter
	issuer   *verification.Issuer
	verifier *verification.Verifier
	reaper   *verification.Reaper
	now      func() time.Time

	codeAttempts      AttemptLimiter
	failClosed        bool
	minPasswordLength int
}

// NewService wires the flows. It fails if the policy table is incomplete.
func NewService(
	repo verification.Repository,
	directory users.Directory,
	notifier Notifier,
	hasher password.Hasher,
	baseURL string,
	opts ...Option,
) (*Service, error) {
	o := &options{
		policies:          verification.DefaultPolicies(),
		now:               func() time.Time { return time.Now().UTC() },
		generator:         verification.RandomGenerator{},
		minPasswordLength: password.DefaultMinLength,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.policies.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow policies: %w", err)
	}

	common := []verification.Option{verification.WithNow(o.now)}
	limiterOpts := common
	if o.failClosed {
		limiterOpts = append(limiterOpts, verification.WithFailClosed())
	}

	return &Service{
		directory:         directory,
		repo:              repo,
		notifier:          notifier,
		hasher:            hasher,
		baseURL:           strings.TrimRight(baseURL, "/"),
		policies:          o.policies,
		limiter:           verification.NewLimiter(repo, o.policies, limiterOpts...),
		issuer:            verification.NewIssuer(repo, o.policies, append(common, verification.WithGenerator(o.generator))...),
		verifier:          verification.NewVerifier(repo, common...),
		reaper:            verification.NewReaper(repo, common...),
		now:               o.now,
		codeAttempts:      o.codeAttempts,
		failClosed:        o.failClosed,
		minPasswordLength: o.minPasswordLength,
	}, nil
}

// ReapExpiredTokens deletes every expired token and returns how many were removed
func (s *Service) ReapExpiredTokens(ctx context.Context) (int64, error) {
	return s.reaper.RunOnce(ctx)
}

func (s *Service) ttl(flow verification.FlowType) time.Duration {
	return s.policies[flow].TTL
}

func (s *Service) link(path, secret string) string {
	return s.baseURL + path + "?token=" + url.QueryEscape(secret)
}

// issueRequest describes one send: who the token belongs to, which address it
// binds to, and how to build the notice from the plaintext secret and code.
type issueRequest struct {
	userID   uuid.UUID
	email    string
	flow     verification.FlowType
	notice   notification.NoticeType
	path     string
	metadata map[string]string
	extra    map[string]string
}

// issueAndNotify is the send path shared by all flows: rate limit gate, issue,
// notify. It returns verification.ErrRateLimitExceeded,
// verification.ErrPersistenceFailure or ErrDispatchFailure.
func (s *Service) issueAndNotify(ctx context.Context, req issueRequest) (*verification.IssuedToken, error) {
	if !s.limiter.Allow(ctx, req.userID, req.flow) {
		return nil, verification.ErrRateLimitExceeded
	}

	issued, err := s.issuer.Issue(ctx, verification.IssueRequest{
		UserID:   req.userID,
		Email:    req.email,
		Flow:     req.flow,
		Metadata: req.metadata,
	})
	if err != nil {
		return nil, err
	}

	data := map[string]string{
		notification.KeyLink:      s.link(req.path, issued.Secret),
		notification.KeyEmail:     req.email,
		notification.KeyExpiresIn: humanizeDuration(s.ttl(req.flow)),
	}
	if issued.Code != "" {
		data[notification.KeyCode] = issued.Code
	}
	for k, v := range req.extra {
		data[k] = v
	}

	if err := s.notifier.Send(req.notice, notification.NotificationData{To: req.email, Data: data}); err != nil {
		slog.Error("Failed to send notification", "user_id", req.userID, "flow", req.flow, "token_id", issued.Token.ID, "error", err)
		return issued, fmt.Errorf("%w: %v", ErrDispatchFailure, err)
	}

	slog.Info("Notification sent", "user_id", req.userID, "flow", req.flow, "token_id", issued.Token.ID)
	return issued, nil
}

// sideEffect applies a flow's change to the account once its token is redeemed
type sideEffect func(ctx context.Context, token *verification.Token, now time.Time) error

// redeemAndApply is the confirm path shared by all flows. redeem performs the
// atomic redemption; apply runs only for the request that won it. A token is
// never handed back once redeemed, so a failing apply leaves it burned.
func (s *Service) redeemAndApply(
	ctx context.Context,
	flow verification.FlowType,
	redeem func() (verification.RedeemResult, error),
	apply sideEffect,
) (*verification.Token, error) {
	result, err := redeem()
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		return nil, result.Err()
	}

	token := result.Token
	if err := apply(ctx, token, s.now()); err != nil {
		slog.Error("Failed to apply redeemed token", "token_id", token.ID, "user_id", token.UserID, "flow", flow, "error", err)
		return nil, err
	}
	return token, nil
}

// ResultFromError collapses internal errors into the caller-facing taxonomy.
// Structured errors from pkg/errors keep their own code and message.
func ResultFromError(err error) Result {
	e := classifyError(err)
	return failure(e.Code, e.Message)
}

func classifyError(err error) *apperrors.Error {
	if e, ok := apperrors.As(err); ok {
		return e
	}
	switch {
	case errors.Is(err, verification.ErrRateLimitExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeRateLimitExceeded, MsgRateLimited)
	case errors.Is(err, verification.ErrTokenNotFound),
		errors.Is(err, verification.ErrTokenExpired),
		errors.Is(err, verification.ErrTokenAlreadyUsed),
		errors.Is(err, errStaleBinding),
		errors.Is(err, users.ErrUserNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeTokenInvalid, MsgInvalidToken)
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, MsgUnavailable)
	}
}

// lookupByEmail returns the account for email, nil when there is none
func (s *Service) lookupByEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func humanizeDuration(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return d.String()
	}
}
