package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports/tests"
)

// MockStore is a minimal map-backed HistoryStore used to exercise the contract suite itself.
type MockStore struct {
	data map[domain.SurfaceID]*domain.History
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[domain.SurfaceID]*domain.History),
	}
}

func (m *MockStore) Save(ctx context.Context, surface domain.SurfaceID, history *domain.History) error {
	m.data[surface] = history.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, surface domain.SurfaceID) (*domain.History, error) {
	history, ok := m.data[surface]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}
	return history.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, surface domain.SurfaceID) error {
	delete(m.data, surface)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]domain.SurfaceID, error) {
	surfaces := make([]domain.SurfaceID, 0, len(m.data))
	for id := range m.data {
		surfaces = append(surfaces, id)
	}
	return surfaces, nil
}

func TestHistoryStore_Contract(t *testing.T) {
	tests.RunHistoryStoreContract(t, NewMockStore())
}
