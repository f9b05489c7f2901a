package pin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PinRecord is the per-user state of one issued PIN. At most one record
// exists per user at any time; issuing a new PIN replaces the old record
// wholesale. Only the hash of the PIN is ever stored.
type PinRecord struct {
	UserID      uuid.UUID `json:"user_id"`
	HashedPin   string    `json:"hashed_pin"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
}

// ExpiredAt reports whether the record is no longer consumable at the given time.
func (r PinRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Exhausted reports whether the failed-attempt ceiling has been reached.
func (r PinRecord) Exhausted() bool {
	return r.Attempts >= r.MaxAttempts
}

// PinStore defines the persistence contract for PIN records. The store is
// the only synchronization point of the protocol: every implementation must
// make Put, CompareAndDelete and IncrementAttempts atomic with respect to a
// single user's key. No cross-key atomicity is required.
type PinStore interface {
	// Put creates or replaces the record for record.UserID. Replace
	// discards the previous record entirely.
	Put(ctx context.Context, record PinRecord) error

	// Get returns the current record for the user, or ErrPinNotFound.
	Get(ctx context.Context, userID uuid.UUID) (PinRecord, error)

	// Delete removes the record for the user. Deleting an absent record
	// is not an error.
	Delete(ctx context.Context, userID uuid.UUID) error

	// CompareAndDelete atomically reads the current record, evaluates
	// predicate against it, and deletes it iff the predicate holds. It
	// returns whether the delete happened. An absent record returns
	// (false, nil). This is the primitive that makes PIN consumption
	// at-most-once across concurrent verifiers.
	CompareAndDelete(ctx context.Context, userID uuid.UUID, predicate func(PinRecord) bool) (bool, error)

	// IncrementAttempts atomically adds one to the record's failed-attempt
	// counter and returns the new value, or ErrPinNotFound if no record
	// exists.
	IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error)
}

// errStoreConflict is returned internally by optimistic-concurrency backends
// when a transaction loses a race and should be retried.
var errStoreConflict = errors.New("pin store: concurrent modification")
