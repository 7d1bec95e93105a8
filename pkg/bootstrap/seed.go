package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-verify/pkg/password"
	"github.com/tendant/simple-verify/pkg/users"
)

// SeedConfig describes the account created on first start
type SeedConfig struct {
	Email    string `env:"SEED_USER_EMAIL"`
	Name     string `env:"SEED_USER_NAME" env-default:"Admin"`
	Password string `env:"SEED_USER_PASSWORD"`
}

// SeedResult reports what SeedUser did
type SeedResult struct {
	User    *users.User
	Created bool
}

// SeedUser creates the configured account unless one with that email exists.
// An empty Email disables seeding and returns a nil result.
func SeedUser(ctx context.Context, directory users.Directory, hasher password.Hasher, cfg SeedConfig) (*SeedResult, error) {
	email := users.NormalizeEmail(cfg.Email)
	if email == "" {
		return nil, nil
	}

	existing, err := directory.FindByEmail(ctx, email)
	if err == nil {
		slog.Info("Seed user already exists", "user_id", existing.ID)
		return &SeedResult{User: existing}, nil
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up seed user: %w", err)
	}

	now := time.Now().UTC()
	user := &users.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      cfg.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cfg.Password != "" {
		hash, err := hasher.Hash(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash seed password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := directory.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create seed user: %w", err)
	}
	slog.Info("Seed user created", "user_id", user.ID, "email", user.Email)
	return &SeedResult{User: user, Created: true}, nil
}
