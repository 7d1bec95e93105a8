package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, password_hash, email_verified, email_verified_at, created_at, updated_at`

// PostgresDirectory implements Directory on the users table
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory creates a new PostgreSQL user directory
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.EmailVerified,
		&u.EmailVerifiedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (d *PostgresDirectory) Create(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := d.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.EmailVerified,
		user.EmailVerifiedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (d *PostgresDirectory) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(d.db.QueryRow(ctx, query, id))
}

func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(d.db.QueryRow(ctx, query, NormalizeEmail(email)))
}

func (d *PostgresDirectory) exec(ctx context.Context, query string, args ...any) error {
	tag, err := d.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (d *PostgresDirectory) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET email_verified = TRUE, email_verified_at = $2, updated_at = $2
		WHERE id = $1
	`
	return d.exec(ctx, query, id, at)
}

func (d *PostgresDirectory) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`
	return d.exec(ctx, query, id, hash, at)
}

func (d *PostgresDirectory) ChangeEmail(ctx context.Context, id uuid.UUID, newEmail string, at time.Time) error {
	query := `
		UPDATE users
		SET email = $2, email_verified = TRUE, email_verified_at = $3, updated_at = $3
		WHERE id = $1
	`
	return d.exec(ctx, query, id, NormalizeEmail(newEmail), at)
}
