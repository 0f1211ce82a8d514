// internal/session/memory.go
package session

import (
	"context"
	"sync"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/models"
)

// MemoryStore is the in-process Store used by default and in tests.
// Records are deep-copied on the way in and out so callers can never
// mutate stored state outside Replace.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.ApplicationRecord
	locks   keyLocker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.ApplicationRecord),
	}
}

func (s *MemoryStore) Create(ctx context.Context, rec *models.ApplicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SessionID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*models.ApplicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Replace(ctx context.Context, rec *models.ApplicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.SessionID]; !ok {
		return errors.NewSessionNotFoundError(rec.SessionID)
	}
	s.records[rec.SessionID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Lock(sessionID string)   { s.locks.Lock(sessionID) }
func (s *MemoryStore) Unlock(sessionID string) { s.locks.Unlock(sessionID) }
