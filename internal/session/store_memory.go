package session

import (
	"context"
	"sync"
	"time"

	"paras/internal/models"
)

// MemoryStore keeps sessions in-process. Used in tests and as the failover
// target of last resort.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.SessionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.SessionRecord)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	if record.Expired(time.Now()) {
		return nil, nil
	}
	copied := record
	return &copied, nil
}

func (s *MemoryStore) Put(ctx context.Context, record *models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = *record
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
