package llm

import (
	"fmt"
	"io"
	"strings"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 * 1024

// StatusError is returned when the completion endpoint answers with a
// non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion request failed with status %d: %s", e.StatusCode, e.Body)
}

func newStatusError(code int, body io.ReadCloser) *StatusError {
	serr := &StatusError{StatusCode: code}
	if body == nil {
		return serr
	}
	defer body.Close()
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	serr.Body = strings.TrimSpace(string(data))
	return serr
}
