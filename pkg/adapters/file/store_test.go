package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/guidebook/pkg/adapters/file"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements ProfileStore
var _ ports.ProfileStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunProfileStoreContract(t, file.NewStore(t.TempDir()))
}

func TestFileStore_MalformedLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"choices": [`), 0o644))

	store := file.NewStore(dir)
	state, err := store.Load(context.Background(), "broken")
	require.NoError(t, err)
	assert.Equal(t, "broken", state.Name())
	assert.Empty(t, state.Keys())
}

func TestFileStore_InvalidNames(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, store.Save(ctx, name, domain.NewChoiceState(name)), "name %q", name)
		_, err := store.Load(ctx, name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestFileStore_ListIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b", domain.NewChoiceState("b")))
	require.NoError(t, store.Save(ctx, "a", domain.NewChoiceState("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-c-123.json"), nil, 0o644))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}
