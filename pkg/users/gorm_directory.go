package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRecord is the GORM model for the users table
type UserRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email           string    `gorm:"uniqueIndex;not null"`
	Name            string    `gorm:"not null;default:''"`
	PasswordHash    string    `gorm:"not null;default:''"`
	EmailVerified   bool      `gorm:"not null;default:false"`
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (UserRecord) TableName() string {
	return "users"
}

func (rec *UserRecord) toUser() *User {
	return &User{
		ID:              rec.ID,
		Email:           rec.Email,
		Name:            rec.Name,
		PasswordHash:    rec.PasswordHash,
		EmailVerified:   rec.EmailVerified,
		EmailVerifiedAt: rec.EmailVerifiedAt,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

// GormDirectory implements Directory with GORM (SQLite or PostgreSQL)
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// AutoMigrate creates or updates the users table
func (d *GormDirectory) AutoMigrate() error {
	return d.db.AutoMigrate(&UserRecord{})
}

// isDuplicate covers both the sqlite and postgres unique constraint messages
// for dialects that do not translate errors into gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}

func (d *GormDirectory) Create(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)

	rec := &UserRecord{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		PasswordHash:    user.PasswordHash,
		EmailVerified:   user.EmailVerified,
		EmailVerifiedAt: user.EmailVerifiedAt,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
	if err := d.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicate(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (d *GormDirectory) first(ctx context.Context, query string, arg any) (*User, error) {
	var rec UserRecord
	err := d.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return rec.toUser(), nil
}

func (d *GormDirectory) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return d.first(ctx, "id = ?", id)
}

func (d *GormDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	return d.first(ctx, "email = ?", NormalizeEmail(email))
}

func (d *GormDirectory) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	result := d.db.WithContext(ctx).Model(&UserRecord{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrEmailTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (d *GormDirectory) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return d.update(ctx, id, map[string]any{
		"email_verified":    true,
		"email_verified_at": at,
		"updated_at":        at,
	})
}

func (d *GormDirectory) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	return d.update(ctx, id, map[string]any{
		"password_hash": hash,
		"updated_at":    at,
	})
}

func (d *GormDirectory) ChangeEmail(ctx context.Context, id uuid.UUID, newEmail string, at time.Time) error {
	return d.update(ctx, id, map[string]any{
		"email":             NormalizeEmail(newEmail),
		"email_verified":    true,
		"email_verified_at": at,
		"updated_at":        at,
	})
}
