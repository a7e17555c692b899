package render

import (
	"fmt"
	"io"
)

const clearLine = "\r\x1b[2K"

// StreamView prints a reply as it streams in. With Markdown set the deltas
// are not echoed; the finished reply is rendered once instead.
type StreamView struct {
	Out      io.Writer
	Markdown bool
	Width    int
	Style    string

	cleared bool
}

func NewStreamView(out io.Writer, markdown bool, width int, style string) *StreamView {
	return &StreamView{Out: out, Markdown: markdown, Width: width, Style: style}
}

func (v *StreamView) Thinking() {
	v.cleared = false
	fmt.Fprint(v.Out, dimStyle.Render("thinking…"))
}

func (v *StreamView) Delta(text string) {
	if v.Markdown {
		return
	}
	v.clear()
	fmt.Fprint(v.Out, text)
}

func (v *StreamView) Finish(text string) {
	v.clear()
	if v.Markdown {
		fmt.Fprint(v.Out, Markdown(text, v.Width, v.Style))
		return
	}
	fmt.Fprintln(v.Out)
}

func (v *StreamView) clear() {
	if !v.cleared {
		fmt.Fprint(v.Out, clearLine)
		v.cleared = true
	}
}
