package reauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher defines the interface for password hashing implementations.
type PasswordHasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, hashedPassword string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt at the default cost.
type BcryptHasher struct{}

// Hash implements PasswordHasher.Hash
func (BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Verify implements PasswordHasher.Verify
func (BcryptHasher) Verify(password, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Password doesn't match, but not an error
		}
		return false, err
	}
	return true, nil
}

// PasswordReauthProvider proves identity by re-checking the account
// password. It surfaces only ErrInvalidCredential and ErrPrincipalNotFound
// so callers cannot be used as a credential-guessing oracle.
type PasswordReauthProvider struct {
	credentials CredentialStore
	hasher      PasswordHasher
}

// NewPasswordReauthProvider creates a password-based reauthentication
// provider using bcrypt verification.
func NewPasswordReauthProvider(credentials CredentialStore) *PasswordReauthProvider {
	return &PasswordReauthProvider{
		credentials: credentials,
		hasher:      BcryptHasher{},
	}
}

// Reauthenticate checks the supplied password against the stored hash.
func (p *PasswordReauthProvider) Reauthenticate(ctx context.Context, userID uuid.UUID, secret string) error {
	hash, err := p.credentials.GetPasswordHash(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}

	ok, err := p.hasher.Verify(secret, hash)
	if err != nil {
		slog.Error("Failed to verify password", "user_id", userID, "error", err)
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredential
	}
	return nil
}
