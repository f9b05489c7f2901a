package emailchange

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserAccount is the slice of the account this package cares about: the
// email of record and whether ownership of it has been confirmed.
type UserAccount struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PendingEmailChange records a requested but not yet confirmed change of the
// email of record. At most one exists per user; a new request supersedes it.
type PendingEmailChange struct {
	UserID      uuid.UUID `json:"user_id"`
	NewEmail    string    `json:"new_email"`
	RequestedAt time.Time `json:"requested_at"`
}

// UserRepository defines persistence for accounts and their pending email
// changes.
type UserRepository interface {
	GetUser(ctx context.Context, userID uuid.UUID) (UserAccount, error)

	// UpdateEmail swaps the email of record. The verified flag is set as
	// given; a freshly changed address always starts unverified.
	UpdateEmail(ctx context.Context, userID uuid.UUID, email string, verified bool) error

	// SetEmailVerified flips the verified flag without touching the address.
	SetEmailVerified(ctx context.Context, userID uuid.UUID, verified bool) error

	// PutPendingChange creates or replaces the user's pending change.
	PutPendingChange(ctx context.Context, change PendingEmailChange) error

	// GetPendingChange returns the user's pending change, or ErrNoPendingChange.
	GetPendingChange(ctx context.Context, userID uuid.UUID) (PendingEmailChange, error)

	// DeletePendingChange removes the pending change; absent is not an error.
	DeletePendingChange(ctx context.Context, userID uuid.UUID) error
}
