package memory

import (
	"context"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
)

// HistoryStore implements ports.HistoryStore in memory.
// Safe for concurrent use.
type HistoryStore struct {
	data map[domain.SurfaceID]*domain.History
	mu   sync.RWMutex
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		data: make(map[domain.SurfaceID]*domain.History),
	}
}

// Save persists the history in memory.
func (s *HistoryStore) Save(ctx context.Context, surface domain.SurfaceID, history *domain.History) error {
	// Copy to ensure isolation, similar to serialization
	copied := history.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[surface] = copied
	return nil
}

// Load retrieves the history from memory.
func (s *HistoryStore) Load(ctx context.Context, surface domain.SurfaceID) (*domain.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[surface]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}

	// Copy on read so callers can't mutate store state through the pointer
	return history.Clone(), nil
}

// Delete removes the history.
func (s *HistoryStore) Delete(ctx context.Context, surface domain.SurfaceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, surface)
	return nil
}

// List returns every surface with a history.
func (s *HistoryStore) List(ctx context.Context) ([]domain.SurfaceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	surfaces := make([]domain.SurfaceID, 0, len(s.data))
	for id := range s.data {
		surfaces = append(surfaces, id)
	}
	return surfaces, nil
}
