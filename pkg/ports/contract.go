package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunProfileStoreContract runs a suite of tests to verify that a ProfileStore
// implementation adheres to the interface contract.
func RunProfileStoreContract(t *testing.T, store ProfileStore) {
	ctx := context.Background()
	name := "contract-test-profile-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewChoiceState(name)
		state.Set("os", "Linux", false)
		state.SetMulti("tools", []string{"git", "make"}, false)
		state.Remove("db")

		err := store.Save(ctx, name, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, name, loaded.Name())

		v, ok := loaded.Get("os")
		assert.True(t, ok)
		assert.Equal(t, "Linux", v)

		v, _ = loaded.Get("tools")
		titles, err := domain.DecodeMulti(v)
		require.NoError(t, err)
		assert.Equal(t, []string{"git", "make"}, titles)

		assert.True(t, loaded.IsRejected("db"), "rejections must survive persistence")
		assert.WithinDuration(t, state.CreationTime(), loaded.CreationTime(), time.Second)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, name, domain.NewChoiceState(name))
		require.NoError(t, err)

		err = store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound, "Load after Delete should return ErrProfileNotFound")

		assert.NoError(t, store.Delete(ctx, name), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		_ = store.Save(ctx, id1, domain.NewChoiceState(id1))
		_ = store.Save(ctx, id2, domain.NewChoiceState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}
