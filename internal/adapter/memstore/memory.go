package memstore

import (
	"context"
	"fmt"
	"sync"

	"repoindex/internal/domain"
)

// MemoryStore keeps written records in process memory. It backs dry runs
// and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.MemoryRecord
	order   []string
	seq     int
	failOn  func(domain.MemoryRecord) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.MemoryRecord),
	}
}

// FailWhen installs a hook consulted before every write; a non-nil result
// is returned as the write error and nothing is stored.
func (s *MemoryStore) FailWhen(fn func(domain.MemoryRecord) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = fn
}

func (s *MemoryStore) Write(ctx context.Context, record domain.MemoryRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn != nil {
		if err := s.failOn(record); err != nil {
			return "", err
		}
	}

	s.seq++
	id := fmt.Sprintf("mem-%d", s.seq)
	record.ID = id
	s.records[id] = record
	s.order = append(s.order, id)
	return id, nil
}

func (s *MemoryStore) Get(id string) (domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return domain.MemoryRecord{}, fmt.Errorf("memory not found: %s", id)
	}
	return r, nil
}

// Records returns every record in write order.
func (s *MemoryStore) Records() []domain.MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MemoryRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
