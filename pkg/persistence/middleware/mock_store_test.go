package middleware_test

import (
	"context"
	"sort"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
// It keeps the states it is given, so tests can inspect what was persisted.
type MockStore struct {
	data map[string]*domain.ChoiceState
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.ChoiceState),
	}
}

func (s *MockStore) Save(ctx context.Context, name string, state *domain.ChoiceState) error {
	s.data[name] = state
	return nil
}

func (s *MockStore) Load(ctx context.Context, name string) (*domain.ChoiceState, error) {
	state, ok := s.data[name]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return state, nil
}

func (s *MockStore) Delete(ctx context.Context, name string) error {
	delete(s.data, name)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ ports.ProfileStore = (*MockStore)(nil)
