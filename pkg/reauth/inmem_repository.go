package reauth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type credential struct {
	passwordHash string
	totpSecret   string
}

// InMemoryCredentialStore implements CredentialStore with a mutex-guarded
// map. Intended for development and tests; production deployments back the
// gate with their identity provider instead.
type InMemoryCredentialStore struct {
	mutex       sync.RWMutex
	credentials map[uuid.UUID]credential
}

// NewInMemoryCredentialStore creates an empty in-memory credential store.
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{
		credentials: make(map[uuid.UUID]credential),
	}
}

// SetPasswordHash stores a password hash for the user.
func (s *InMemoryCredentialStore) SetPasswordHash(userID uuid.UUID, hash string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cred := s.credentials[userID]
	cred.passwordHash = hash
	s.credentials[userID] = cred
}

// SetTOTPSecret stores a TOTP secret for the user.
func (s *InMemoryCredentialStore) SetTOTPSecret(userID uuid.UUID, secret string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cred := s.credentials[userID]
	cred.totpSecret = secret
	s.credentials[userID] = cred
}

// GetPasswordHash returns the stored password hash for the user.
func (s *InMemoryCredentialStore) GetPasswordHash(ctx context.Context, userID uuid.UUID) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cred, exists := s.credentials[userID]
	if !exists || cred.passwordHash == "" {
		return "", ErrPrincipalNotFound
	}
	return cred.passwordHash, nil
}

// GetTOTPSecret returns the stored TOTP secret for the user.
func (s *InMemoryCredentialStore) GetTOTPSecret(ctx context.Context, userID uuid.UUID) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cred, exists := s.credentials[userID]
	if !exists || cred.totpSecret == "" {
		return "", ErrPrincipalNotFound
	}
	return cred.totpSecret, nil
}
