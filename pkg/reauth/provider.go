package reauth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredential is returned when the supplied secret does not
	// prove the principal's identity
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrPrincipalNotFound is returned when no credential exists for the principal
	ErrPrincipalNotFound = errors.New("principal not found")
)

// CredentialStore looks up the stored reauthentication material for a
// principal. Implementations return ErrPrincipalNotFound for unknown users.
type CredentialStore interface {
	// GetPasswordHash returns the stored password hash for the user.
	GetPasswordHash(ctx context.Context, userID uuid.UUID) (string, error)

	// GetTOTPSecret returns the stored TOTP secret for the user.
	GetTOTPSecret(ctx context.Context, userID uuid.UUID) (string, error)
}
