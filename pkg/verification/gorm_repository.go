package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TokenRecord is the GORM model for the verification_tokens table
type TokenRecord struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID         `gorm:"type:uuid;index:idx_verification_tokens_user_flow,priority:1;not null"`
	Email      string            `gorm:"size:320;index:idx_verification_tokens_email_flow,priority:1;not null"`
	SecretHash string            `gorm:"size:64;uniqueIndex;not null"`
	CodeHash   *string           `gorm:"size:64"`
	FlowType   string            `gorm:"size:32;index:idx_verification_tokens_user_flow,priority:2;index:idx_verification_tokens_email_flow,priority:2;not null"`
	ExpiresAt  time.Time         `gorm:"index;not null"`
	CreatedAt  time.Time         `gorm:"index:idx_verification_tokens_user_flow,priority:3;not null"`
	UsedAt     *time.Time        `gorm:"index"`
	Metadata   datatypes.JSONMap `gorm:"type:json"`
}

// TableName pins the table name shared with the SQL migrations
func (TokenRecord) TableName() string {
	return "verification_tokens"
}

func recordFromToken(t *Token) *TokenRecord {
	rec := &TokenRecord{
		ID:         t.ID,
		UserID:     t.UserID,
		Email:      t.Email,
		SecretHash: t.SecretHash,
		FlowType:   string(t.FlowType),
		ExpiresAt:  t.ExpiresAt,
		CreatedAt:  t.CreatedAt,
		UsedAt:     t.UsedAt,
		Metadata:   datatypes.JSONMap{},
	}
	if t.CodeHash != "" {
		code := t.CodeHash
		rec.CodeHash = &code
	}
	for k, v := range t.Metadata {
		rec.Metadata[k] = v
	}
	return rec
}

func (rec *TokenRecord) toToken() *Token {
	t := &Token{
		ID:         rec.ID,
		UserID:     rec.UserID,
		Email:      rec.Email,
		SecretHash: rec.SecretHash,
		FlowType:   FlowType(rec.FlowType),
		ExpiresAt:  rec.ExpiresAt,
		CreatedAt:  rec.CreatedAt,
		UsedAt:     rec.UsedAt,
	}
	if rec.CodeHash != nil {
		t.CodeHash = *rec.CodeHash
	}
	if len(rec.Metadata) > 0 {
		t.Metadata = make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			t.Metadata[k] = fmt.Sprint(v)
		}
	}
	return t
}

// GormRepository implements Repository on any GORM dialect
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM token repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or updates the token table
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&TokenRecord{})
}

func (r *GormRepository) first(ctx context.Context, query *gorm.DB) (*Token, error) {
	var rec TokenRecord
	if err := query.WithContext(ctx).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return rec.toToken(), nil
}

// CreateToken inserts a new token row
func (r *GormRepository) CreateToken(ctx context.Context, token *Token) error {
	if err := r.db.WithContext(ctx).Create(recordFromToken(token)).Error; err != nil {
		return fmt.Errorf("failed to insert verification token: %w", err)
	}
	return nil
}

// GetTokenBySecretHash retrieves a token regardless of its state
func (r *GormRepository) GetTokenBySecretHash(ctx context.Context, secretHash string) (*Token, error) {
	return r.first(ctx, r.db.Where("secret_hash = ?", secretHash))
}

// FindLatestUnusedByCode retrieves the newest unused token matching the code
func (r *GormRepository) FindLatestUnusedByCode(ctx context.Context, email string, flow FlowType, codeHash string) (*Token, error) {
	return r.first(ctx, r.db.
		Where("email = ? AND flow_type = ? AND code_hash = ? AND used_at IS NULL", email, string(flow), codeHash).
		Order("created_at DESC"))
}

// RedeemToken consumes the token with a guarded UPDATE. Only the caller whose
// update affected the row owns the redemption.
func (r *GormRepository) RedeemToken(ctx context.Context, secretHash string, flow FlowType, now time.Time) (*Token, error) {
	result := r.db.WithContext(ctx).
		Model(&TokenRecord{}).
		Where("secret_hash = ? AND flow_type = ? AND used_at IS NULL AND expires_at > ?", secretHash, string(flow), now).
		Update("used_at", now)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTokenNotFound
	}
	return r.GetTokenBySecretHash(ctx, secretHash)
}

// CountRecentTokens counts recent tokens for rate limiting
func (r *GormRepository) CountRecentTokens(ctx context.Context, userID uuid.UUID, flow FlowType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&TokenRecord{}).
		Where("user_id = ? AND flow_type = ? AND created_at >= ?", userID, string(flow), since).
		Count(&count).Error
	return count, err
}

// InvalidateActiveTokens marks sibling tokens as used
func (r *GormRepository) InvalidateActiveTokens(ctx context.Context, userID uuid.UUID, flow FlowType, exceptID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&TokenRecord{}).
		Where("user_id = ? AND flow_type = ? AND id <> ? AND used_at IS NULL AND expires_at > ?", userID, string(flow), exceptID, now).
		Update("used_at", now)
	return result.RowsAffected, result.Error
}

// DeleteExpiredTokens hard deletes expired rows
func (r *GormRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&TokenRecord{})
	return result.RowsAffected, result.Error
}
