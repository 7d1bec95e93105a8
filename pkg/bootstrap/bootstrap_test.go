package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/simple-verify/pkg/config"
	"github.com/tendant/simple-verify/pkg/password"
	"github.com/tendant/simple-verify/pkg/users"
	"github.com/tendant/simple-verify/pkg/verification"
)

func TestOpenStoresFile(t *testing.T) {
	dir := t.TempDir()
	stores, err := OpenStores(context.Background(), config.ServiceConfig{
		PersistenceType: config.PersistenceFile,
		DataDir:         filepath.Join(dir, "nested"),
	})
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &verification.FileRepository{}, stores.Tokens)
	assert.IsType(t, &users.FileDirectory{}, stores.Directory)
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestOpenStoresGormSqlite(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.ServiceConfig{
		PersistenceType: config.PersistenceGormSqlite,
		SqlitePath:      filepath.Join(t.TempDir(), "db", "verify.db"),
		RunMigrations:   true,
	})
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &verification.GormRepository{}, stores.Tokens)
	assert.IsType(t, &users.GormDirectory{}, stores.Directory)

	result, err := SeedUser(context.Background(), stores.Directory, password.NewBcryptHasher(4), SeedConfig{Email: "a@x.com"})
	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestOpenStoresUnsupported(t *testing.T) {
	_, err := OpenStores(context.Background(), config.ServiceConfig{PersistenceType: "mongo"})
	assert.ErrorContains(t, err, "unsupported persistence type")
}

func TestOpenStoresPostgresPoolFailure(t *testing.T) {
	orig := newDbPool
	t.Cleanup(func() { newDbPool = orig })
	newDbPool = func(ctx context.Context, cfg dbutils.DbConfig) (*pgxpool.Pool, error) {
		return nil, errors.New("connection refused")
	}
	migrated := false
	origMigrations := runMigrations
	t.Cleanup(func() { runMigrations = origMigrations })
	runMigrations = func(ctx context.Context, db *sql.DB) error {
		migrated = true
		return nil
	}

	_, err := OpenStores(context.Background(), config.ServiceConfig{PersistenceType: config.PersistencePostgres, RunMigrations: true})
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, migrated)
}

func TestSeedUser(t *testing.T) {
	ctx := context.Background()
	directory, err := users.NewFileDirectory(t.TempDir())
	require.NoError(t, err)
	hasher := password.NewBcryptHasher(4)

	t.Run("Disabled", func(t *testing.T) {
		result, err := SeedUser(ctx, directory, hasher, SeedConfig{})
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("Create", func(t *testing.T) {
		result, err := SeedUser(ctx, directory, hasher, SeedConfig{Email: " Admin@X.com", Name: "Admin", Password: "pwd-for-tests"})
		require.NoError(t, err)
		require.True(t, result.Created)
		assert.Equal(t, "admin@x.com", result.User.Email)

		ok, err := hasher.Verify("pwd-for-tests", result.User.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Existing", func(t *testing.T) {
		result, err := SeedUser(ctx, directory, hasher, SeedConfig{Email: "admin@x.com"})
		require.NoError(t, err)
		assert.False(t, result.Created)
	})
}
