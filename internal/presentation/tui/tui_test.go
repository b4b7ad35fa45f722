package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")

	out := buf.String()
	assert.Contains(t, out, bannerArt[1])
	assert.Contains(t, out, "v1.2.3")
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("## Pick a database\n\nPostgres or **SQLite**.")
	require.NoError(t, err)
	assert.Contains(t, out, "Pick a database")
	assert.True(t, strings.Contains(out, "SQLite"))
}
