package emailchange

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

const (
	usersFileName   = "users.json"
	pendingFileName = "pending_email_changes.json"
)

// FileUserRepository implements UserRepository on JSON files with atomic
// renames, for single-instance deployments without a database.
type FileUserRepository struct {
	dataDir string
	mutex   sync.RWMutex
	users   map[uuid.UUID]UserAccount
	pending map[uuid.UUID]PendingEmailChange
}

// NewFileUserRepository creates a file-based user repository rooted at
// dataDir, loading any previously persisted state.
func NewFileUserRepository(dataDir string) (*FileUserRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileUserRepository{
		dataDir: dataDir,
		users:   make(map[uuid.UUID]UserAccount),
		pending: make(map[uuid.UUID]PendingEmailChange),
	}

	if err := loadJSONMap(filepath.Join(dataDir, usersFileName), repo.users, func(u UserAccount) uuid.UUID { return u.ID }); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	if err := loadJSONMap(filepath.Join(dataDir, pendingFileName), repo.pending, func(c PendingEmailChange) uuid.UUID { return c.UserID }); err != nil {
		return nil, fmt.Errorf("failed to load pending changes: %w", err)
	}

	return repo, nil
}

// SeedUser inserts an account, for demo setups.
func (r *FileUserRepository) SeedUser(user UserAccount) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.users[user.ID] = user
	return r.saveUsers()
}

func (r *FileUserRepository) GetUser(ctx context.Context, userID uuid.UUID) (UserAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[userID]
	if !exists {
		return UserAccount{}, ErrUserNotFound
	}
	return user, nil
}

func (r *FileUserRepository) UpdateEmail(ctx context.Context, userID uuid.UUID, email string, verified bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.Email = email
	user.EmailVerified = verified
	user.UpdatedAt = time.Now().UTC()
	r.users[userID] = user
	return r.saveUsers()
}

func (r *FileUserRepository) SetEmailVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.EmailVerified = verified
	user.UpdatedAt = time.Now().UTC()
	r.users[userID] = user
	return r.saveUsers()
}

func (r *FileUserRepository) PutPendingChange(ctx context.Context, change PendingEmailChange) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.pending[change.UserID] = change
	return r.savePending()
}

func (r *FileUserRepository) GetPendingChange(ctx context.Context, userID uuid.UUID) (PendingEmailChange, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	change, exists := r.pending[userID]
	if !exists {
		return PendingEmailChange{}, ErrNoPendingChange
	}
	return change, nil
}

func (r *FileUserRepository) DeletePendingChange(ctx context.Context, userID uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.pending[userID]; !exists {
		return nil
	}
	delete(r.pending, userID)
	return r.savePending()
}

func (r *FileUserRepository) saveUsers() error {
	values := make([]UserAccount, 0, len(r.users))
	for _, u := range r.users {
		values = append(values, u)
	}
	return saveJSON(r.dataDir, usersFileName, values)
}

func (r *FileUserRepository) savePending() error {
	values := make([]PendingEmailChange, 0, len(r.pending))
	for _, c := range r.pending {
		values = append(values, c)
	}
	return saveJSON(r.dataDir, pendingFileName, values)
}

// loadJSONMap reads a JSON array from filePath into dest keyed by keyFn.
// A missing or empty file leaves dest empty.
func loadJSONMap[T any](filePath string, dest map[uuid.UUID]T, keyFn func(T) uuid.UUID) error {
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

	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	for _, v := range values {
		dest[keyFn(v)] = v
	}
	return nil
}

// saveJSON writes values to dataDir/fileName atomically.
func saveJSON(dataDir, fileName string, values any) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(dataDir, fileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(dataDir, fileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
