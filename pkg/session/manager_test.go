package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/guidebook/pkg/adapters/memory"
	redisadapter "github.com/aretw0/guidebook/pkg/adapters/redis"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s *SlowStore) Save(ctx context.Context, name string, state *domain.ChoiceState) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, name, state)
}

func (s *SlowStore) Load(ctx context.Context, name string) (*domain.ChoiceState, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, name)
}

func TestManager_UpdateSerializesWriters(t *testing.T) {
	manager := session.NewManager(&SlowStore{memory.NewStore()})
	ctx := context.Background()

	_, err := manager.LoadOrCreate(ctx, "dev")
	require.NoError(t, err)

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, k := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			_, err := manager.Update(ctx, "dev", func(s *domain.ChoiceState) error {
				s.Set(k, "yes", true)
				return nil
			})
			assert.NoError(t, err)
		}(k)
	}
	wg.Wait()

	// Without locking, read-modify-write would lose answers.
	state, err := manager.Load(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, keys, state.Keys())
}

func TestManager_LoadOrCreate(t *testing.T) {
	manager := session.NewManager(&SlowStore{memory.NewStore()})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := manager.LoadOrCreate(ctx, "fresh")
			assert.NoError(t, err)
			assert.NotNil(t, state)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", state.Name())
}

func TestManager_UpdateErrorDoesNotSave(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "dev")
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = manager.Update(ctx, "dev", func(s *domain.ChoiceState) error {
		s.Set("k", "v", true)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := manager.Load(ctx, "dev")
	require.NoError(t, err)
	assert.Empty(t, state.Keys())
}

func TestManager_RejectCloneDiff(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	dev := domain.NewChoiceState("dev")
	dev.Set("db.md", "Postgres", true)
	dev.Set("cache.md", "Redis", true)
	require.NoError(t, manager.Save(ctx, "dev", dev))

	clone, err := manager.Clone(ctx, "dev", "staging")
	require.NoError(t, err)
	assert.Equal(t, "staging", clone.Name())

	rejected, err := manager.Reject(ctx, "staging", "cache.md")
	require.NoError(t, err)
	assert.True(t, rejected.IsRejected("cache.md"))

	diff, err := manager.Diff(ctx, "dev", "staging")
	require.NoError(t, err)
	assert.Equal(t, "staging", diff.Profile)
	assert.Equal(t, []string{"cache.md"}, diff.Rejected)

	_, err = manager.Clone(ctx, "dev", "dev")
	assert.Error(t, err)

	_, err = manager.Reject(ctx, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	names, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "staging"}, names)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := redisadapter.NewFromClient(client)
	locker := redisadapter.NewLocker(client, "guidebook:lock:")

	// Two managers stand for two processes sharing the store.
	first := session.NewManager(store, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	second := session.NewManager(store, session.WithLocker(locker))

	ctx := context.Background()
	_, err := first.LoadOrCreate(ctx, "shared")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = first.WithLock(ctx, "shared", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	err = second.WithLock(short, "shared", func(context.Context) error { return nil })
	assert.Error(t, err, "second process must wait for the lock")

	close(release)
	assert.Eventually(t, func() bool {
		return second.WithLock(ctx, "shared", func(context.Context) error { return nil }) == nil
	}, 2*time.Second, 20*time.Millisecond)
}
