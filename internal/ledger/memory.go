package ledger

import (
	"context"
	"sync"

	"github.com/joss/pairkit/internal/domain"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.FileEditRecord
	next    int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, rec *domain.FileEditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	rec.Seq = s.next
	s.records = append(s.records, *rec)
	return nil
}

// List returns a copy of all records
func (s *MemoryStore) List(ctx context.Context) ([]domain.FileEditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FileEditRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) Remove(ctx context.Context, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.Seq == seq {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
