package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/guidebook/internal/logging"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder keeps a distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates profile access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.ProfileStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new profile Manager with the given persistence store.
func NewManager(store ports.ProfileStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(name) after unlocking.
func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

// Load retrieves an existing profile from the store.
func (m *Manager) Load(ctx context.Context, name string) (*domain.ChoiceState, error) {
	var state *domain.ChoiceState
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, name)
		return err
	})
	return state, err
}

// LoadOrCreate loads a profile, creating and persisting an empty one when it
// does not exist yet.
func (m *Manager) LoadOrCreate(ctx context.Context, name string) (*domain.ChoiceState, error) {
	var state *domain.ChoiceState
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, name)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return fmt.Errorf("failed to check profile existence: %w", err)
		}

		state = domain.NewChoiceState(name)
		if err := m.store.Save(ctx, name, state); err != nil {
			return fmt.Errorf("failed to initialize profile: %w", err)
		}
		return nil
	})
	return state, err
}

// Save persists the profile.
func (m *Manager) Save(ctx context.Context, name string, state *domain.ChoiceState) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Save(ctx, name, state)
	})
}

// Update loads a profile, applies fn and saves the result, all under the
// profile lock.
func (m *Manager) Update(ctx context.Context, name string, fn func(*domain.ChoiceState) error) (*domain.ChoiceState, error) {
	var state *domain.ChoiceState
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		if state, err = m.store.Load(ctx, name); err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}
		return m.store.Save(ctx, name, state)
	})
	return state, err
}

// Reject removes answers from a stored profile so that they are asked again.
func (m *Manager) Reject(ctx context.Context, name string, keys ...string) (*domain.ChoiceState, error) {
	return m.Update(ctx, name, func(s *domain.ChoiceState) error {
		for _, k := range keys {
			s.Remove(k)
		}
		return nil
	})
}

// Clone copies the profile src into dst, replacing dst.
func (m *Manager) Clone(ctx context.Context, src, dst string) (*domain.ChoiceState, error) {
	if src == dst {
		return nil, fmt.Errorf("cannot clone profile %s onto itself", src)
	}
	var clone *domain.ChoiceState
	err := m.withLocks(ctx, []string{src, dst}, func(ctx context.Context) error {
		state, err := m.store.Load(ctx, src)
		if err != nil {
			return err
		}
		clone = state.Clone(dst)
		return m.store.Save(ctx, dst, clone)
	})
	return clone, err
}

// Diff compares two stored profiles.
func (m *Manager) Diff(ctx context.Context, from, to string) (*domain.ChoiceDiff, error) {
	a, err := m.Load(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", from, err)
	}
	b, err := m.Load(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", to, err)
	}
	return domain.Diff(a, b), nil
}

// Delete removes the profile from the store.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Delete(ctx, name)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying profile store.
func (m *Manager) Store() ports.ProfileStore {
	return m.store
}

// WithLock executes a function while holding the lock for the profile.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, name, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"profile", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// withLocks holds the locks of several profiles, taken in name order.
func (m *Manager) withLocks(ctx context.Context, names []string, fn func(context.Context) error) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var run func(i int, ctx context.Context) error
	run = func(i int, ctx context.Context) error {
		if i == len(sorted) {
			return fn(ctx)
		}
		return m.WithLock(ctx, sorted[i], func(ctx context.Context) error {
			return run(i+1, ctx)
		})
	}
	return run(0, ctx)
}
