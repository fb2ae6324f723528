package rendition

import (
	"context"
	"sync"
	"time"

	"docstore/internal/models"
)

// Result is the outcome of a successful attempt. Skipped is set when the
// source was already a PDF and nothing was produced.
type Result struct {
	Content *models.Content
	Skipped bool
}

// Handle tracks one submitted attempt. Abandoning a handle does not stop
// the attempt.
type Handle struct {
	id          string
	ctx         context.Context
	source      models.Content
	submittedAt time.Time
	done        chan struct{}

	mu         sync.Mutex
	state      State
	failedIn   State
	result     Result
	err        error
	finishedAt time.Time
}

func newHandle(source models.Content) *Handle {
	return &Handle{
		id:          models.NewID(),
		source:      source,
		submittedAt: time.Now().UTC(),
		done:        make(chan struct{}),
		state:       StateRequested,
	}
}

// ID identifies the attempt.
func (h *Handle) ID() string {
	return h.id
}

// Source is the content being rendered.
func (h *Handle) Source() models.Content {
	return h.source
}

// Done is closed once the attempt reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the attempt finishes or ctx ends.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.outcome()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// WaitTimeout blocks for at most d. A non-positive d only polls.
func (h *Handle) WaitTimeout(d time.Duration) (Result, error) {
	if d <= 0 {
		select {
		case <-h.done:
			return h.outcome()
		default:
			return Result{}, ErrWaitTimeout
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-h.done:
		return h.outcome()
	case <-timer.C:
		return Result{}, ErrWaitTimeout
	}
}

// Finished reports whether the attempt is terminal.
func (h *Handle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// State returns the current step.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Status is a point-in-time view of a handle.
type Status struct {
	ID          string
	Source      models.Content
	State       State
	FailedIn    State
	Result      Result
	Err         error
	SubmittedAt time.Time
	FinishedAt  time.Time
}

// Status snapshots the handle.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Status{
		ID:          h.id,
		Source:      h.source,
		State:       h.state,
		FailedIn:    h.failedIn,
		Result:      h.result,
		Err:         h.err,
		SubmittedAt: h.submittedAt,
		FinishedAt:  h.finishedAt,
	}
}

func (h *Handle) outcome() (Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return
	}
	h.state = s
}

func (h *Handle) finish(res Result, err error) {
	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		return
	}
	h.finishedAt = time.Now().UTC()
	if err != nil {
		h.err = err
		h.failedIn = h.state
		if rendErr, ok := AsError(err); ok {
			h.failedIn = rendErr.State
		}
		h.state = StateRolledBack
	} else {
		h.result = res
		h.state = StateCommitted
	}
	h.mu.Unlock()
	close(h.done)
}
