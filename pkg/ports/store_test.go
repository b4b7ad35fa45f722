package ports_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
)

// MockStore is an in-memory ProfileStore that round-trips through JSON
// to simulate serialization.
type MockStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]byte)}
}

func (m *MockStore) Save(ctx context.Context, name string, state *domain.ChoiceState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = b
	return nil
}

func (m *MockStore) Load(ctx context.Context, name string) (*domain.ChoiceState, error) {
	m.mu.Lock()
	b, ok := m.data[name]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	state := &domain.ChoiceState{}
	if err := json.Unmarshal(b, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (m *MockStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for k := range m.data {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func TestProfileStore_Contract(t *testing.T) {
	ports.RunProfileStoreContract(t, NewMockStore())
}
