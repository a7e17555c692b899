// Package render draws conversations and replies in the terminal.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders text for a terminal of the given width. style is a glamour
// standard style name; "auto" or "" picks one from the terminal background.
// If rendering fails the text is returned unchanged.
func Markdown(text string, width int, style string) string {
	r, err := newRenderer(width, style)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

func newRenderer(width int, style string) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	return glamour.NewTermRenderer(opts...)
}
