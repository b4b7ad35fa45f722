package tui

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWordWrap is the column markdown is wrapped at.
const DefaultWordWrap = 80

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() func(string) (string, error) {
	return NewRendererWithWrap(DefaultWordWrap)
}

// NewRendererWithWrap is NewRenderer with a custom wrap column.
// If glamour cannot be initialized, markdown is returned unchanged.
func NewRendererWithWrap(width int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
