package users

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

const userDataFile = "users.json"

// FileDirectory implements Directory using a JSON file
type FileDirectory struct {
	dataDir string
	users   map[uuid.UUID]*User // Key: user ID
	mutex   sync.RWMutex
}

type userFileData struct {
	Users []*User `json:"users"`
}

// NewFileDirectory creates a new file-based user directory
func NewFileDirectory(dataDir string) (*FileDirectory, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	d := &FileDirectory{
		dataDir: dataDir,
		users:   make(map[uuid.UUID]*User),
	}
	if err := d.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return d, nil
}

func (d *FileDirectory) emailOwner(email string) *User {
	for _, u := range d.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (d *FileDirectory) Create(ctx context.Context, user *User) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)
	if d.emailOwner(user.Email) != nil {
		return ErrEmailTaken
	}

	stored := *user
	d.users[stored.ID] = &stored
	if err := d.save(); err != nil {
		delete(d.users, stored.ID)
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (d *FileDirectory) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (d *FileDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	u := d.emailOwner(NormalizeEmail(email))
	if u == nil {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// mutate applies fn to a copy of the user and commits it only if the save succeeds
func (d *FileDirectory) mutate(id uuid.UUID, fn func(u *User) error) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	current, ok := d.users[id]
	if !ok {
		return ErrUserNotFound
	}
	updated := *current
	if err := fn(&updated); err != nil {
		return err
	}

	d.users[id] = &updated
	if err := d.save(); err != nil {
		d.users[id] = current
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (d *FileDirectory) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return d.mutate(id, func(u *User) error {
		verifiedAt := at
		u.EmailVerified = true
		u.EmailVerifiedAt = &verifiedAt
		u.UpdatedAt = at
		return nil
	})
}

func (d *FileDirectory) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	return d.mutate(id, func(u *User) error {
		u.PasswordHash = hash
		u.UpdatedAt = at
		return nil
	})
}

func (d *FileDirectory) ChangeEmail(ctx context.Context, id uuid.UUID, newEmail string, at time.Time) error {
	newEmail = NormalizeEmail(newEmail)
	return d.mutate(id, func(u *User) error {
		if owner := d.emailOwner(newEmail); owner != nil && owner.ID != id {
			return ErrEmailTaken
		}
		verifiedAt := at
		u.Email = newEmail
		u.EmailVerified = true
		u.EmailVerifiedAt = &verifiedAt
		u.UpdatedAt = at
		return nil
	})
}

func (d *FileDirectory) load() error {
	filePath := filepath.Join(d.dataDir, userDataFile)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var fileData userFileData
	if err := json.Unmarshal(data, &fileData); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	for _, u := range fileData.Users {
		d.users[u.ID] = u
	}
	return nil
}

func (d *FileDirectory) save() error {
	list := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		list = append(list, u)
	}

	jsonData, err := json.MarshalIndent(userFileData{Users: list}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(d.dataDir, userDataFile+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, filepath.Join(d.dataDir, userDataFile)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
