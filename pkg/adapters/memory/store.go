package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/aretw0/guidebook/pkg/domain"
)

// Store implements ports.ProfileStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists the profile in memory.
// Profiles are kept serialized so the caller and the store never share state.
func (s *Store) Save(ctx context.Context, name string, state *domain.ChoiceState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = raw
	return nil
}

// Load retrieves a profile from memory.
func (s *Store) Load(ctx context.Context, name string) (*domain.ChoiceState, error) {
	s.mu.RLock()
	raw, ok := s.data[name]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrProfileNotFound
	}

	state := domain.NewChoiceState(name)
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Delete removes the profile.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the stored profile names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
