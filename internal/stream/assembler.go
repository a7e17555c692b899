// Package stream reassembles assistant replies from chat completion
// Server-Sent Events bodies.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"

	readSize = 4 * 1024
)

// ErrTransport wraps failures reading the response body.
var ErrTransport = errors.New("stream transport failed")

type Kind int

const (
	Skip Kind = iota
	Delta
	Done
)

func (k Kind) String() string {
	switch k {
	case Delta:
		return "delta"
	case Done:
		return "done"
	default:
		return "skip"
	}
}

// Outcome is the classification of one SSE line.
type Outcome struct {
	Kind Kind
	Text string
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ParseLine classifies a single line of the event stream. Lines that are
// not data lines, payloads that are not valid JSON and payloads without
// content all yield Skip.
func ParseLine(line string) Outcome {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, dataPrefix) {
		return Outcome{Kind: Skip}
	}
	payload := line[len(dataPrefix):]
	if payload == doneMarker {
		return Outcome{Kind: Done}
	}

	var c chunk
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Outcome{Kind: Skip}
	}
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == "" {
		return Outcome{Kind: Skip}
	}
	return Outcome{Kind: Delta, Text: c.Choices[0].Delta.Content}
}

// Assembler consumes transport chunks in order. Bytes after the last
// newline of a chunk are held until the next chunk completes the line, so
// events may span chunk boundaries.
type Assembler struct {
	partial []byte
	text    strings.Builder
	done    bool
}

// Feed processes every complete line in data and returns the deltas found,
// in order. After the [DONE] marker nothing more is processed.
func (a *Assembler) Feed(data []byte) []string {
	if a.done {
		return nil
	}
	a.partial = append(a.partial, data...)

	var deltas []string
	for !a.done {
		i := bytes.IndexByte(a.partial, '\n')
		if i < 0 {
			break
		}
		line := string(a.partial[:i])
		a.partial = a.partial[i+1:]
		deltas = a.apply(ParseLine(line), deltas)
	}
	if a.done {
		a.partial = nil
	}
	return deltas
}

// Flush treats any buffered, unterminated tail as a final line. It is
// called once the body reports end of stream.
func (a *Assembler) Flush() []string {
	if a.done || len(a.partial) == 0 {
		a.partial = nil
		return nil
	}
	line := string(a.partial)
	a.partial = nil
	return a.apply(ParseLine(line), nil)
}

func (a *Assembler) apply(o Outcome, deltas []string) []string {
	switch o.Kind {
	case Done:
		a.done = true
	case Delta:
		a.text.WriteString(o.Text)
		deltas = append(deltas, o.Text)
	}
	return deltas
}

// Done reports whether the [DONE] marker has been seen.
func (a *Assembler) Done() bool {
	return a.done
}

// Text returns everything assembled so far.
func (a *Assembler) Text() string {
	return a.text.String()
}

// Deltas returns an iterator over the content deltas in body. Each call
// starts reading from wherever body currently is; a body cannot be resumed
// by a second iterator once the first has consumed it. Iteration stops at
// end of body, at [DONE], or after yielding a non-nil error.
func Deltas(ctx context.Context, body io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var a Assembler
		buf := make([]byte, readSize)
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			n, err := body.Read(buf)
			if n > 0 {
				for _, d := range a.Feed(buf[:n]) {
					if !yield(d, nil) {
						return
					}
				}
				if a.Done() {
					return
				}
			}

			if errors.Is(err, io.EOF) {
				for _, d := range a.Flush() {
					if !yield(d, nil) {
						return
					}
				}
				return
			}
			if err != nil {
				yield("", fmt.Errorf("%w: %w", ErrTransport, err))
				return
			}
		}
	}
}

// Assemble drives Deltas to completion, calling onDelta for each delta,
// and returns the full reply. On error the text assembled so far is
// returned together with the error.
func Assemble(ctx context.Context, body io.Reader, onDelta func(string)) (string, error) {
	var sb strings.Builder
	for delta, err := range Deltas(ctx, body) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	return sb.String(), nil
}
