package pin

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryPinStore implements PinStore with a mutex-guarded map. All data is
// lost on restart; intended for development, demos and tests.
type InMemoryPinStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]PinRecord
}

// NewInMemoryPinStore creates an empty in-memory pin store.
func NewInMemoryPinStore() *InMemoryPinStore {
	return &InMemoryPinStore{
		records: make(map[uuid.UUID]PinRecord),
	}
}

// Put creates or replaces the record for the user.
func (s *InMemoryPinStore) Put(ctx context.Context, record PinRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records[record.UserID] = record
	return nil
}

// Get returns the current record for the user.
func (s *InMemoryPinStore) Get(ctx context.Context, userID uuid.UUID) (PinRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, exists := s.records[userID]
	if !exists {
		return PinRecord{}, ErrPinNotFound
	}
	return record, nil
}

// Delete removes the record for the user, if any.
func (s *InMemoryPinStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.records, userID)
	return nil
}

// CompareAndDelete deletes the record iff predicate holds for it.
func (s *InMemoryPinStore) CompareAndDelete(ctx context.Context, userID uuid.UUID, predicate func(PinRecord) bool) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, exists := s.records[userID]
	if !exists || !predicate(record) {
		return false, nil
	}
	delete(s.records, userID)
	return true, nil
}

// IncrementAttempts adds one failed attempt and returns the new count.
func (s *InMemoryPinStore) IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, exists := s.records[userID]
	if !exists {
		return 0, ErrPinNotFound
	}
	record.Attempts++
	s.records[userID] = record
	return record.Attempts, nil
}
