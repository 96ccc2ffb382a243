package repository

import (
	"context"
	"sync"

	"github.com/vigil-scan-server/internal/domain"
)

// MemoryProfileStore implements domain.ProfileStore in process memory, for
// tests and for running the server without a database.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.UserProfile
}

// NewMemoryProfileStore creates an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]*domain.UserProfile),
	}
}

// Get retrieves the profile for a session.
func (s *MemoryProfileStore) Get(ctx context.Context, sessionID string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

// Update applies a shallow merge of the partial profile onto the stored
// one and returns the merged result.
func (s *MemoryProfileStore) Update(ctx context.Context, sessionID string, partial *domain.UserProfile) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.profiles[sessionID]
	if !ok {
		current = &domain.UserProfile{}
	}
	merged := MergeProfiles(current, partial)
	s.profiles[sessionID] = merged

	copied := *merged
	return &copied, nil
}
