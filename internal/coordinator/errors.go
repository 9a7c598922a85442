package coordinator

import (
	"errors"
	"fmt"
	"time"
)

// ErrDisposed settles an in-flight load whose block was disposed before the
// load finished. Callers that disposed the block expect it; nothing else
// should see it.
var ErrDisposed = errors.New("coordinator: block disposed during load")

// InitError records a failed worker handshake sequence. Never surfaced to a
// load caller: it flips the session to permanent fallback routing.
type InitError struct {
	Attempts int
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("worker init failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// TimeoutError is the worker path exhausting its budget. Internal: it
// triggers fallback and only becomes visible wrapped inside a FallbackError
// when the fallback then fails too.
type TimeoutError struct {
	BlockID string
	Budget  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("worker did not respond for block %s within %s", e.BlockID, e.Budget)
}

// TransportError is an explicit error message posted by the worker. Arriving
// before the timeout it triggers immediate fallback rather than waiting out
// the budget.
type TransportError struct {
	BlockID string
	Msg     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("worker transport error for block %s: %s", e.BlockID, e.Msg)
}

// FallbackError is the terminal failure surfaced to the caller: the direct
// path failed after the worker path was skipped, timed out, or errored.
// WorkerErr carries the worker-side reason when there was one.
type FallbackError struct {
	BlockID   string
	WorkerErr error
	Err       error
}

func (e *FallbackError) Error() string {
	if e.WorkerErr != nil {
		return fmt.Sprintf("load failed for block %s: %v (worker path: %v)", e.BlockID, e.Err, e.WorkerErr)
	}
	return fmt.Sprintf("load failed for block %s: %v", e.BlockID, e.Err)
}

func (e *FallbackError) Unwrap() error { return e.Err }
