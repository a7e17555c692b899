package render

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var writeClipboard = clipboard.WriteAll

var ErrNoClipboard = errors.New("no clipboard available")

// Copy puts text on the system clipboard.
func Copy(text string) error {
	if clipboard.Unsupported {
		return ErrNoClipboard
	}
	return writeClipboard(text)
}

// Selection picks what to copy from a reply: code block n (1-based) or the
// whole reply when n is 0.
func Selection(reply string, n int) (string, error) {
	if n == 0 {
		return reply, nil
	}
	blocks := CodeBlocks(reply)
	if n < 0 || n > len(blocks) {
		return "", fmt.Errorf("code block %d not found, reply has %d", n, len(blocks))
	}
	return blocks[n-1].Code, nil
}
