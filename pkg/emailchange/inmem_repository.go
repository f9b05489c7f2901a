package emailchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryUserRepository implements UserRepository with mutex-guarded maps.
// All data is lost on restart; intended for development and tests.
type InMemoryUserRepository struct {
	mutex   sync.RWMutex
	users   map[uuid.UUID]UserAccount
	pending map[uuid.UUID]PendingEmailChange
}

// NewInMemoryUserRepository creates an empty in-memory user repository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:   make(map[uuid.UUID]UserAccount),
		pending: make(map[uuid.UUID]PendingEmailChange),
	}
}

// SeedUser inserts an account, for tests and demo setups.
func (r *InMemoryUserRepository) SeedUser(user UserAccount) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.users[user.ID] = user
}

func (r *InMemoryUserRepository) GetUser(ctx context.Context, userID uuid.UUID) (UserAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[userID]
	if !exists {
		return UserAccount{}, ErrUserNotFound
	}
	return user, nil
}

func (r *InMemoryUserRepository) UpdateEmail(ctx context.Context, userID uuid.UUID, email string, verified bool) error {
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
	return nil
}

func (r *InMemoryUserRepository) SetEmailVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.EmailVerified = verified
	user.UpdatedAt = time.Now().UTC()
	r.users[userID] = user
	return nil
}

func (r *InMemoryUserRepository) PutPendingChange(ctx context.Context, change PendingEmailChange) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.pending[change.UserID] = change
	return nil
}

func (r *InMemoryUserRepository) GetPendingChange(ctx context.Context, userID uuid.UUID) (PendingEmailChange, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	change, exists := r.pending[userID]
	if !exists {
		return PendingEmailChange{}, ErrNoPendingChange
	}
	return change, nil
}

func (r *InMemoryUserRepository) DeletePendingChange(ctx context.Context, userID uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.pending, userID)
	return nil
}
