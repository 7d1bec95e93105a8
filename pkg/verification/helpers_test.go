package verification

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
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

// setupTestRepo creates a temporary directory and repository for testing
func setupTestRepo(t *testing.T) (*FileRepository, string) {
	t.Helper()
	tempDir := filepath.Join(os.TempDir(), "verification-test-"+uuid.New().String())
	require.NoError(t, os.MkdirAll(tempDir, 0755))

	repo, err := NewFileRepository(tempDir)
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tempDir)
	})
	return repo, tempDir
}

func newTestToken(userID uuid.UUID, email, secret string, flow FlowType, createdAt time.Time, ttl time.Duration) *Token {
	return &Token{
		ID:         uuid.New(),
		UserID:     userID,
		Email:      email,
		SecretHash: HashSecret(secret),
		FlowType:   flow,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(ttl),
	}
}

// brokenCountRepo fails every count query
type brokenCountRepo struct {
	Repository
}

func (brokenCountRepo) CountRecentTokens(ctx context.Context, userID uuid.UUID, flow FlowType, since time.Time) (int64, error) {
	return 0, errors.New("connection refused")
}

// brokenCreateRepo fails every insert
type brokenCreateRepo struct {
	Repository
}

func (brokenCreateRepo) CreateToken(ctx context.Context, token *Token) error {
	return errors.New("disk full")
}

// fixedGenerator returns predictable secrets for assertions
type fixedGenerator struct {
	mu     sync.Mutex
	n      int
	prefix string
	code   string
}

func (g *fixedGenerator) NewSecret() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + string(rune('a'+g.n)), nil
}

func (g *fixedGenerator) NewCode() (string, error) {
	return g.code, nil
}
