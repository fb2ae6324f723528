package rendition

import (
	"errors"
	"fmt"

	"docstore/internal/apperr"
)

var (
	// ErrQueueFull is returned by Submit when the worker queue has no room.
	ErrQueueFull = errors.New("rendition queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("rendition engine is closed")
	// ErrWaitTimeout is returned by Handle.WaitTimeout when the attempt is
	// still running. The attempt itself is unaffected.
	ErrWaitTimeout = errors.New("timed out waiting for rendition")
)

// Error is the single failure type of a rendition attempt. Err carries the
// classified cause; State is the step that failed.
type Error struct {
	State     State
	ContentID string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rendition of content %s failed while %s: %v", e.ContentID, e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind returns the classification of the cause.
func (e *Error) Kind() apperr.Kind {
	if kind := apperr.KindOf(e.Err); kind != "" {
		return kind
	}
	return apperr.KindInternal
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var rendErr *Error
	if errors.As(err, &rendErr) {
		return rendErr, true
	}
	return nil, false
}
