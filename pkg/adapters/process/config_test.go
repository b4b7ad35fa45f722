package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRuntimes(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing File Yields Defaults", func(t *testing.T) {
		rts, err := LoadRuntimes(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultRuntimes(), rts)
	})

	t.Run("YAML Overrides And Adds", func(t *testing.T) {
		path := filepath.Join(dir, "runtimes.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
runtimes:
  - lang: python
    command: python3.12
    args: ["-"]
  - lang: ruby
    command: ruby
    env:
      RUBYOPT: -W0
`), 0644))

		rts, err := LoadRuntimes(path)
		require.NoError(t, err)
		assert.Equal(t, "python3.12", rts["python"].Command)
		assert.Equal(t, "-W0", rts["ruby"].Environment["RUBYOPT"])
		assert.True(t, rts["sh"].Shell)
	})

	t.Run("JSON By Extension", func(t *testing.T) {
		path := filepath.Join(dir, "runtimes.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"runtimes":[{"lang":"fish","command":"fish","shell":true}]}`), 0644))

		rts, err := LoadRuntimes(path)
		require.NoError(t, err)
		assert.True(t, rts["fish"].Shell)
	})

	t.Run("Missing Command", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("runtimes:\n  - lang: perl\n"), 0644))

		_, err := LoadRuntimes(path)
		assert.ErrorContains(t, err, "missing command")
	})

	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

		_, err := LoadRuntimes(path)
		assert.ErrorContains(t, err, "failed to parse broken.json")
	})
}
