package celeryq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/celeryq/celeryq/backend"
	"github.com/celeryq/celeryq/envelope"
)

// ResultHandle is a future-like wrapper returned by TaskBuilder.Apply. It
// lazily pulls the result from its backend on the first Get call and
// memoizes the outcome for later calls.
type ResultHandle struct {
	taskID  string
	backend backend.Backend

	mu       sync.Mutex
	fetched  bool
	result   envelope.ResultEnvelope
	fetchErr error

	// publishErr, if non-nil, is surfaced by Get as the terminal error for a
	// task whose publish never succeeded, per this repo's resolution of the
	// fire-and-forget-publish-failure open question: propagate through the
	// handle rather than dropping it.
	publishErr error
}

func newResultHandle(taskID string, b backend.Backend) *ResultHandle {
	return &ResultHandle{taskID: taskID, backend: b}
}

// TaskID returns the id of the task this handle tracks.
func (h *ResultHandle) TaskID() string { return h.taskID }

// setPublishErr records a publish failure observed after the handle was
// constructed but before any Get call resolved a result.
func (h *ResultHandle) setPublishErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fetched {
		h.publishErr = err
	}
}

// Get blocks until the backend settles this task's result or timeout
// elapses (timeout <= 0 means wait indefinitely, bounded only by ctx). The
// first call that receives a terminal status or a backend error memoizes
// its outcome; later calls return it without touching the backend again. A
// timeout, a cancellation, or a non-terminal status is returned without
// being memoized, so a later call asks the backend again.
func (h *ResultHandle) Get(ctx context.Context, timeout time.Duration) (envelope.ResultEnvelope, error) {
	h.mu.Lock()
	if h.fetched {
		result, err := h.result, h.fetchErr
		h.mu.Unlock()
		return result, err
	}
	if h.publishErr != nil {
		err := h.publishErr
		h.mu.Unlock()
		return envelope.ResultEnvelope{}, err
	}
	h.mu.Unlock()

	result, err := h.backend.Get(ctx, h.taskID, timeout)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(err == nil && !result.Status.Done()) {
		return result, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fetched {
		h.fetched = true
		h.result = result
		h.fetchErr = err
	}
	return h.result, h.fetchErr
}

// Delete removes this task's entry from its backend.
func (h *ResultHandle) Delete(ctx context.Context) (string, error) {
	return h.backend.Delete(ctx, h.taskID)
}
