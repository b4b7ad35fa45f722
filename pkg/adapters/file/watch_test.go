package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaves.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: a\n  body: echo a\n"), 0644))
	other := filepath.Join(dir, "notes.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := NewLoader(path).Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("- id: b\n  body: echo b\n"), 0644))

	select {
	case got := <-ch:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestLoader_Watch_MissingPath(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Watch(context.Background())
	assert.Error(t, err)
}
