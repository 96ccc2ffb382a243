package history

import (
	"context"
	"sync"

	"github.com/vigil-scan-server/internal/domain"
)

// MemoryStore implements domain.HistoryStore in process memory. Used for
// tests and for running the server without any database configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.ScanRecord
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]domain.ScanRecord),
	}
}

// Get retrieves the session's scan records in stored order.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) ([]domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.sessions[sessionID]
	if !ok || len(records) == 0 {
		return nil, domain.ErrNotFound
	}

	out := make([]domain.ScanRecord, len(records))
	copy(out, records)
	return out, nil
}

// Put replaces the session's history with the given records.
func (s *MemoryStore) Put(ctx context.Context, sessionID string, records []domain.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.ScanRecord, len(records))
	copy(stored, records)
	s.sessions[sessionID] = stored
	return nil
}

// Close releases nothing; present to satisfy the store contract.
func (s *MemoryStore) Close() error {
	return nil
}
