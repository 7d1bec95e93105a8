package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the token store adapter. Implementations must make RedeemToken
// a single conditional write so concurrent redemptions of one secret can never
// both succeed.
type Repository interface {
	// CreateToken persists a new token row
	CreateToken(ctx context.Context, token *Token) error
	// GetTokenBySecretHash returns the token in any state, or ErrTokenNotFound
	GetTokenBySecretHash(ctx context.Context, secretHash string) (*Token, error)
	// FindLatestUnusedByCode returns the most recent unused token for (email, flow, code)
	FindLatestUnusedByCode(ctx context.Context, email string, flow FlowType, codeHash string) (*Token, error)
	// RedeemToken sets used_at iff the token exists for flow, is unused and unexpired at now.
	// It returns ErrTokenNotFound when nothing was redeemed.
	RedeemToken(ctx context.Context, secretHash string, flow FlowType, now time.Time) (*Token, error)
	// CountRecentTokens counts tokens for (userID, flow) created at or after since
	CountRecentTokens(ctx context.Context, userID uuid.UUID, flow FlowType, since time.Time) (int64, error)
	// InvalidateActiveTokens marks every other active token for (userID, flow) as used
	InvalidateActiveTokens(ctx context.Context, userID uuid.UUID, flow FlowType, exceptID uuid.UUID, now time.Time) (int64, error)
	// DeleteExpiredTokens removes rows with expires_at < now
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

const tokenColumns = `id, user_id, email, secret_hash, code_hash, flow_type, expires_at, created_at, used_at, metadata`

// PostgresRepository implements Repository on PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL token repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	var codeHash *string
	var flow string
	var metadata map[string]string
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Email,
		&t.SecretHash,
		&codeHash,
		&flow,
		&t.ExpiresAt,
		&t.CreatedAt,
		&t.UsedAt,
		&metadata,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if codeHash != nil {
		t.CodeHash = *codeHash
	}
	t.FlowType = FlowType(flow)
	t.Metadata = metadata
	return &t, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateToken inserts a new token row
func (r *PostgresRepository) CreateToken(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO verification_tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9)
	`

	metadata := token.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := r.db.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Email,
		token.SecretHash,
		nullableString(token.CodeHash),
		string(token.FlowType),
		token.ExpiresAt,
		token.CreatedAt,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verification token: %w", err)
	}
	return nil
}

// GetTokenBySecretHash retrieves a token regardless of its state
func (r *PostgresRepository) GetTokenBySecretHash(ctx context.Context, secretHash string) (*Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM verification_tokens
		WHERE secret_hash = $1
	`
	return scanToken(r.db.QueryRow(ctx, query, secretHash))
}

// FindLatestUnusedByCode retrieves the newest unused token matching the code
func (r *PostgresRepository) FindLatestUnusedByCode(ctx context.Context, email string, flow FlowType, codeHash string) (*Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM verification_tokens
		WHERE email = $1
		AND flow_type = $2
		AND code_hash = $3
		AND used_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanToken(r.db.QueryRow(ctx, query, email, string(flow), codeHash))
}

// RedeemToken consumes a token with one guarded UPDATE ... RETURNING
func (r *PostgresRepository) RedeemToken(ctx context.Context, secretHash string, flow FlowType, now time.Time) (*Token, error) {
	query := `
		UPDATE verification_tokens
		SET used_at = $3
		WHERE secret_hash = $1
		AND flow_type = $2
		AND used_at IS NULL
		AND expires_at > $3
		RETURNING ` + tokenColumns
	return scanToken(r.db.QueryRow(ctx, query, secretHash, string(flow), now))
}

// CountRecentTokens counts recent tokens for rate limiting
func (r *PostgresRepository) CountRecentTokens(ctx context.Context, userID uuid.UUID, flow FlowType, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM verification_tokens
		WHERE user_id = $1
		AND flow_type = $2
		AND created_at >= $3
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, string(flow), since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// InvalidateActiveTokens marks sibling tokens as used
func (r *PostgresRepository) InvalidateActiveTokens(ctx context.Context, userID uuid.UUID, flow FlowType, exceptID uuid.UUID, now time.Time) (int64, error) {
	query := `
		UPDATE verification_tokens
		SET used_at = $4
		WHERE user_id = $1
		AND flow_type = $2
		AND id <> $3
		AND used_at IS NULL
		AND expires_at > $4
	`

	tag, err := r.db.Exec(ctx, query, userID, string(flow), exceptID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredTokens hard deletes expired rows
func (r *PostgresRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE expires_at < $1
	`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
