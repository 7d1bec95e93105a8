package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const tokenDataFile = "verification_tokens.json"

// FileRepository implements Repository using a JSON file. All mutations are
// serialized by one mutex, which makes RedeemToken a compare-and-swap.
type FileRepository struct {
	dataDir string
	tokens  map[uuid.UUID]*Token // Key: token ID
	mutex   sync.RWMutex
}

// tokenFileData represents the structure of data stored in the JSON file
type tokenFileData struct {
	Tokens []*Token `json:"tokens"`
}

// NewFileRepository creates a new file-based token repository
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir: dataDir,
		tokens:  make(map[uuid.UUID]*Token),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

// CreateToken stores a new token
func (r *FileRepository) CreateToken(ctx context.Context, token *Token) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.tokens {
		if existing.SecretHash == token.SecretHash {
			return fmt.Errorf("duplicate secret")
		}
	}

	stored := copyToken(token)
	r.tokens[stored.ID] = stored

	if err := r.save(); err != nil {
		delete(r.tokens, stored.ID)
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// GetTokenBySecretHash retrieves a token regardless of its state
func (r *FileRepository) GetTokenBySecretHash(ctx context.Context, secretHash string) (*Token, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, t := range r.tokens {
		if t.SecretHash == secretHash {
			return copyToken(t), nil
		}
	}
	return nil, ErrTokenNotFound
}

// FindLatestUnusedByCode retrieves the newest unused token matching the code
func (r *FileRepository) FindLatestUnusedByCode(ctx context.Context, email string, flow FlowType, codeHash string) (*Token, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var latest *Token
	for _, t := range r.tokens {
		if t.Email != email || t.FlowType != flow || t.CodeHash == "" || t.CodeHash != codeHash || t.UsedAt != nil {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, ErrTokenNotFound
	}
	return copyToken(latest), nil
}

// RedeemToken marks the token used if it is still redeemable
func (r *FileRepository) RedeemToken(ctx context.Context, secretHash string, flow FlowType, now time.Time) (*Token, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, t := range r.tokens {
		if t.SecretHash != secretHash || t.FlowType != flow || !t.Redeemable(now) {
			continue
		}
		usedAt := now
		t.UsedAt = &usedAt
		if err := r.save(); err != nil {
			t.UsedAt = nil
			return nil, fmt.Errorf("failed to save: %w", err)
		}
		return copyToken(t), nil
	}
	return nil, ErrTokenNotFound
}

// CountRecentTokens counts tokens for a user and flow created since a given time
func (r *FileRepository) CountRecentTokens(ctx context.Context, userID uuid.UUID, flow FlowType, since time.Time) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	count := int64(0)
	for _, t := range r.tokens {
		if t.UserID == userID && t.FlowType == flow && !t.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// InvalidateActiveTokens marks sibling tokens as used
func (r *FileRepository) InvalidateActiveTokens(ctx context.Context, userID uuid.UUID, flow FlowType, exceptID uuid.UUID, now time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var changed []*Token
	for _, t := range r.tokens {
		if t.UserID == userID && t.FlowType == flow && t.ID != exceptID && t.Redeemable(now) {
			usedAt := now
			t.UsedAt = &usedAt
			changed = append(changed, t)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}

	if err := r.save(); err != nil {
		for _, t := range changed {
			t.UsedAt = nil
		}
		return 0, fmt.Errorf("failed to save: %w", err)
	}
	return int64(len(changed)), nil
}

// DeleteExpiredTokens removes expired tokens
func (r *FileRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := make(map[uuid.UUID]*Token)
	for id, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			removed[id] = t
			delete(r.tokens, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	if err := r.save(); err != nil {
		for id, t := range removed {
			r.tokens[id] = t
		}
		return 0, fmt.Errorf("failed to save: %w", err)
	}
	return int64(len(removed)), nil
}

func copyToken(t *Token) *Token {
	c := *t
	if t.UsedAt != nil {
		usedAt := *t.UsedAt
		c.UsedAt = &usedAt
	}
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// load reads token data from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, tokenDataFile)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var fileData tokenFileData
	if err := json.Unmarshal(data, &fileData); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.tokens = make(map[uuid.UUID]*Token, len(fileData.Tokens))
	for _, t := range fileData.Tokens {
		r.tokens[t.ID] = t
	}
	return nil
}

// save writes token data to file atomically
func (r *FileRepository) save() error {
	tokens := make([]*Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		tokens = append(tokens, t)
	}

	jsonData, err := json.MarshalIndent(tokenFileData{Tokens: tokens}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, tokenDataFile+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(r.dataDir, tokenDataFile)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
