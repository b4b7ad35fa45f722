package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/guidebook/pkg/adapters/memory"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 1000

	for i := 0; i < count; i++ {
		name := fmt.Sprintf("profile-%d", i)
		_ = mgr.Save(ctx, name, domain.NewChoiceState(name))
		_ = mgr.Delete(ctx, name)
	}

	assert.Empty(t, mgr.locks, "locks must be released once unused")
}

func TestManager_WithLocksOrdersNames(t *testing.T) {
	mgr := NewManager(memory.NewStore())

	var held []int
	err := mgr.withLocks(context.Background(), []string{"b", "a"}, func(context.Context) error {
		mgr.mu.Lock()
		defer mgr.mu.Unlock()
		held = append(held, len(mgr.locks))
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []int{2}, held)
	assert.Empty(t, mgr.locks)
}
