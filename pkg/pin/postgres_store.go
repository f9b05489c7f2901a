package pin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPinStore implements PinStore on PostgreSQL. Per-key atomicity
// comes from single-statement upserts and from row locks
// (SELECT ... FOR UPDATE) inside CompareAndDelete.
//
// Expected schema:
//
//	CREATE TABLE pin_records (
//	    user_id      UUID PRIMARY KEY,
//	    hashed_pin   TEXT NOT NULL,
//	    created_at   TIMESTAMP NOT NULL,
//	    expires_at   TIMESTAMP NOT NULL,
//	    attempts     INT NOT NULL DEFAULT 0,
//	    max_attempts INT NOT NULL
//	);
type PostgresPinStore struct {
	db *pgxpool.Pool
}

// NewPostgresPinStore creates a PostgreSQL-backed pin store.
func NewPostgresPinStore(db *pgxpool.Pool) *PostgresPinStore {
	return &PostgresPinStore{db: db}
}

// Put creates or replaces the record for the user.
func (s *PostgresPinStore) Put(ctx context.Context, record PinRecord) error {
	query := `
		INSERT INTO pin_records (user_id, hashed_pin, created_at, expires_at, attempts, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET hashed_pin = EXCLUDED.hashed_pin,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at,
		    attempts = EXCLUDED.attempts,
		    max_attempts = EXCLUDED.max_attempts
	`

	_, err := s.db.Exec(ctx, query,
		record.UserID,
		record.HashedPin,
		record.CreatedAt,
		record.ExpiresAt,
		record.Attempts,
		record.MaxAttempts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pin record: %w", err)
	}
	return nil
}

// Get returns the current record for the user.
func (s *PostgresPinStore) Get(ctx context.Context, userID uuid.UUID) (PinRecord, error) {
	query := `
		SELECT user_id, hashed_pin, created_at, expires_at, attempts, max_attempts
		FROM pin_records
		WHERE user_id = $1
	`

	var record PinRecord
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&record.UserID,
		&record.HashedPin,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.Attempts,
		&record.MaxAttempts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PinRecord{}, ErrPinNotFound
		}
		return PinRecord{}, fmt.Errorf("failed to get pin record: %w", err)
	}
	return record, nil
}

// Delete removes the record for the user, if any.
func (s *PostgresPinStore) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM pin_records WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete pin record: %w", err)
	}
	return nil
}

// CompareAndDelete locks the user's row, evaluates the predicate and deletes
// the row iff it holds, all inside one transaction.
func (s *PostgresPinStore) CompareAndDelete(ctx context.Context, userID uuid.UUID, predicate func(PinRecord) bool) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT user_id, hashed_pin, created_at, expires_at, attempts, max_attempts
		FROM pin_records
		WHERE user_id = $1
		FOR UPDATE
	`

	var record PinRecord
	err = tx.QueryRow(ctx, query, userID).Scan(
		&record.UserID,
		&record.HashedPin,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.Attempts,
		&record.MaxAttempts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock pin record: %w", err)
	}

	if !predicate(record) {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pin_records WHERE user_id = $1`, userID); err != nil {
		return false, fmt.Errorf("failed to delete pin record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// IncrementAttempts adds one failed attempt and returns the new count.
func (s *PostgresPinStore) IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		UPDATE pin_records
		SET attempts = attempts + 1
		WHERE user_id = $1
		RETURNING attempts
	`

	var attempts int
	err := s.db.QueryRow(ctx, query, userID).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPinNotFound
		}
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return attempts, nil
}
