package pin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const pinFileName = "pins.json"

// FilePinStore implements PinStore on a JSON file. Writes go through a temp
// file and an atomic rename. A process-wide RWMutex provides the per-key
// atomicity the protocol needs; suitable for single-instance deployments
// without a database.
type FilePinStore struct {
	dataDir string
	mutex   sync.RWMutex
	records map[uuid.UUID]PinRecord
}

// NewFilePinStore creates a file-based pin store rooted at dataDir, loading
// any previously persisted records.
func NewFilePinStore(dataDir string) (*FilePinStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &FilePinStore{
		dataDir: dataDir,
		records: make(map[uuid.UUID]PinRecord),
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return store, nil
}

// Put creates or replaces the record for the user.
func (s *FilePinStore) Put(ctx context.Context, record PinRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	previous, existed := s.records[record.UserID]
	s.records[record.UserID] = record

	if err := s.save(); err != nil {
		// Rollback the in-memory state so map and file stay consistent
		if existed {
			s.records[record.UserID] = previous
		} else {
			delete(s.records, record.UserID)
		}
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// Get returns the current record for the user.
func (s *FilePinStore) Get(ctx context.Context, userID uuid.UUID) (PinRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, exists := s.records[userID]
	if !exists {
		return PinRecord{}, ErrPinNotFound
	}
	return record, nil
}

// Delete removes the record for the user, if any.
func (s *FilePinStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.records[userID]; !exists {
		return nil
	}
	delete(s.records, userID)

	if err := s.save(); err != nil {
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// CompareAndDelete deletes the record iff predicate holds for it.
func (s *FilePinStore) CompareAndDelete(ctx context.Context, userID uuid.UUID, predicate func(PinRecord) bool) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, exists := s.records[userID]
	if !exists || !predicate(record) {
		return false, nil
	}
	delete(s.records, userID)

	if err := s.save(); err != nil {
		s.records[userID] = record
		return false, fmt.Errorf("failed to save: %w", err)
	}
	return true, nil
}

// IncrementAttempts adds one failed attempt and returns the new count.
func (s *FilePinStore) IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, exists := s.records[userID]
	if !exists {
		return 0, ErrPinNotFound
	}
	record.Attempts++
	s.records[userID] = record

	if err := s.save(); err != nil {
		record.Attempts--
		s.records[userID] = record
		return 0, fmt.Errorf("failed to save: %w", err)
	}
	return record.Attempts, nil
}

// load reads pin records from file.
func (s *FilePinStore) load() error {
	filePath := filepath.Join(s.dataDir, pinFileName)

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

	var records []PinRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	s.records = make(map[uuid.UUID]PinRecord)
	for _, record := range records {
		s.records[record.UserID] = record
	}

	return nil
}

// save writes pin records to file atomically.
func (s *FilePinStore) save() error {
	records := make([]PinRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(s.dataDir, pinFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(s.dataDir, pinFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
