package flows

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/password"
	"github.com/tendant/simple-verify/pkg/users"
	"github.com/tendant/simple-verify/pkg/verification"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc       *Service
	repo      verification.Repository
	directory users.Directory
	mailer    *notification.MockNotifier
	hasher    password.Hasher
	clock     *testClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	repo, err := verification.NewFileRepository(t.TempDir())
	require.NoError(t, err)
	directory, err := users.NewFileDirectory(t.TempDir())
	require.NoError(t, err)

	mailer := notification.NewMockNotifier()
	manager, err := notification.NewNotificationManagerWithOptions(
		notification.WithNotifier(notification.EmailSystem, mailer),
		notification.WithDefaultTemplates(),
	)
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	hasher := password.NewBcryptHasher(4)

	svc, err := NewService(repo, directory, manager, hasher, "https://app.example.com/",
		append([]Option{WithNow(clock.Now)}, opts...)...)
	require.NoError(t, err)

	return &fixture{svc: svc, repo: repo, directory: directory, mailer: mailer, hasher: hasher, clock: clock}
}

func (f *fixture) createUser(t *testing.T, email string) *users.User {
	t.Helper()
	user := &users.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.directory.Create(context.Background(), user))
	return user
}

func (f *fixture) user(t *testing.T, id uuid.UUID) *users.User {
	t.Helper()
	user, err := f.directory.FindByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

// lastSecret pulls the token query parameter out of the most recent link sent
func (f *fixture) lastSecret(t *testing.T) string {
	t.Helper()
	notice, ok := f.mailer.Last()
	require.True(t, ok, "no notification sent")
	link, err := url.Parse(notice.Data.Data[notification.KeyLink])
	require.NoError(t, err)
	secret := link.Query().Get("token")
	require.NotEmpty(t, secret)
	return secret
}

func (f *fixture) lastCode(t *testing.T) string {
	t.Helper()
	notice, ok := f.mailer.Last()
	require.True(t, ok, "no notification sent")
	return notice.Data.Data[notification.KeyCode]
}

func (f *fixture) countTokens(t *testing.T, userID uuid.UUID, flow verification.FlowType) int64 {
	t.Helper()
	n, err := f.repo.CountRecentTokens(context.Background(), userID, flow, time.Time{})
	require.NoError(t, err)
	return n
}

// failingNotifier rejects every send
type failingNotifier struct{}

func (failingNotifier) Send(notification.NoticeType, notification.NotificationData) error {
	return errors.New("smtp: connection refused")
}

// brokenRepo fails every insert
type brokenRepo struct {
	verification.Repository
}

func (brokenRepo) CreateToken(context.Context, *verification.Token) error {
	return errors.New("disk full")
}

// brokenDirectory fails every lookup
type brokenDirectory struct {
	users.Directory
}

func (brokenDirectory) FindByEmail(context.Context, string) (*users.User, error) {
	return nil, errors.New("connection reset")
}

func (brokenDirectory) FindByID(context.Context, uuid.UUID) (*users.User, error) {
	return nil, errors.New("connection reset")
}
