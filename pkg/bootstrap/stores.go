// Package bootstrap opens the token store and user directory selected by
// configuration and seeds a first account for local runs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	dbutils "github.com/tendant/db-utils/db"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tendant/simple-verify/migrations"
	"github.com/tendant/simple-verify/pkg/config"
	"github.com/tendant/simple-verify/pkg/users"
	"github.com/tendant/simple-verify/pkg/verification"
)

// Stores holds the persistence backends shared by the flows
type Stores struct {
	Tokens    verification.Repository
	Directory users.Directory

	closers []func()
}

// Close releases pools and connections opened by OpenStores
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// seams for tests
var (
	newDbPool     = dbutils.NewDbPool
	runMigrations = migrations.Up
)

// OpenStores builds the token repository and user directory for
// cfg.PersistenceType, applying schema migrations when asked to.
func OpenStores(ctx context.Context, cfg config.ServiceConfig) (*Stores, error) {
	stores := &Stores{}
	repoConfig := verification.RepositoryConfig{DataDir: cfg.DataDir}
	dirConfig := users.DirectoryConfig{DataDir: cfg.DataDir}

	switch cfg.PersistenceType {
	case config.PersistencePostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, pool.Close)
		repoConfig.Pool = pool
		dirConfig.Pool = pool

	case config.PersistenceGormSqlite, config.PersistenceGormPostgres:
		db, err := openGorm(cfg)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			stores.closers = append(stores.closers, func() { sqlDB.Close() })
		}
		repoConfig.DB = db
		dirConfig.DB = db

	case config.PersistenceFile:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	repo, err := verification.NewRepository(cfg.PersistenceType, repoConfig)
	if err != nil {
		stores.Close()
		return nil, err
	}
	directory, err := users.NewDirectory(cfg.PersistenceType, dirConfig)
	if err != nil {
		stores.Close()
		return nil, err
	}

	if cfg.RunMigrations {
		if err := autoMigrate(repo, directory); err != nil {
			stores.Close()
			return nil, err
		}
	}

	stores.Tokens = repo
	stores.Directory = directory
	slog.Info("Stores opened", "persistence", cfg.PersistenceType)
	return stores, nil
}

func openPool(ctx context.Context, cfg config.ServiceConfig) (*pgxpool.Pool, error) {
	dbConfig := cfg.DatabaseConfig.ToDbConfig()
	pool, err := newDbPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if cfg.RunMigrations {
		sqlDB := stdlib.OpenDBFromPool(pool)
		defer sqlDB.Close()
		if err := runMigrations(ctx, sqlDB); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("Database migrations applied")
	}
	return pool, nil
}

func openGorm(cfg config.ServiceConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.PersistenceType == config.PersistenceGormSqlite {
		if dir := filepath.Dir(cfg.SqlitePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.SqlitePath)
	} else {
		dialector = postgres.Open(cfg.DatabaseConfig.ToGormDSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}
	return db, nil
}

type autoMigrator interface {
	AutoMigrate() error
}

func autoMigrate(stores ...any) error {
	for _, s := range stores {
		if m, ok := s.(autoMigrator); ok {
			if err := m.AutoMigrate(); err != nil {
				return fmt.Errorf("failed to migrate gorm schema: %w", err)
			}
		}
	}
	return nil
}
