package middleware_test

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
// It stores pointers as given so tests can inspect exactly what the middleware wrote.
type MockStore struct {
	data map[string]*domain.Checkpoint
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Checkpoint),
	}
}

func (s *MockStore) Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error {
	s.data[sessionID] = cp
	return nil
}

func (s *MockStore) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	cp, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cp, nil
}

func (s *MockStore) Delete(ctx context.Context, sessionID string) error {
	delete(s.data, sessionID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.CheckpointStore = (*MockStore)(nil)
