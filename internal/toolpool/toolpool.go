// Package toolpool pools per-workspace handles to external build tools
// (dub, dcd, dmd, dfmt, dscanner). Each handle serializes calls to one
// in-flight invocation, queues the rest FIFO, and retries a crashed backing
// process with bounded backoff before giving up and surfacing ToolFailure.
//
// The tools themselves are opaque subprocess collaborators — toolpool never
// spawns or speaks their wire protocol. Callers supply the actual
// invocation as a closure; toolpool only owns admission, retry, and the
// dead-handle/ToolFailure contract.
package toolpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/semaphore"
)

// CrashError is returned by an invocation closure to signal that the
// backing process itself died (as opposed to the call failing on its own
// terms, e.g. a lint finding no issues or a format request rejecting
// malformed source). Only CrashError triggers toolpool's retry-then-give-up
// behavior; any other error is returned to the caller unchanged.
type CrashError struct {
	Stderr string
	Err    error
}

func (e *CrashError) Error() string { return fmt.Sprintf("toolpool: process crashed: %v", e.Err) }
func (e *CrashError) Unwrap() error { return e.Err }

// ToolFailure is what a handle's queue drains to once retries under
// CrashError are exhausted: every call already queued on the handle, and
// every call made against it afterward, fails with this until the handle
// is reset.
type ToolFailure struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolFailure) Error() string {
	return fmt.Sprintf("toolpool: %s: %v", e.Tool, e.Err)
}
func (e *ToolFailure) Unwrap() error { return e.Err }

// Suspender is the subset of scheduler.TaskContext toolpool needs: release
// the run token for the duration of a blocking subprocess call, so one
// handler waiting on dcd doesn't stall every other task.
type Suspender interface {
	Suspend(fn func() (interface{}, error)) (interface{}, error)
}

// Invocation is the actual call against the backing tool. It returns
// (*CrashError) to report that the process itself died.
type Invocation func(ctx context.Context) (interface{}, error)

// Handle is a single pooled backing process for one tool in one workspace:
// at most one in-flight Invoke, the rest queued FIFO by the semaphore's own
// waiter order.
type Handle struct {
	tool string
	sem  *semaphore.Weighted

	mu      sync.Mutex
	dead    bool
	deadErr *ToolFailure
}

func newHandle(tool string) *Handle {
	return &Handle{tool: tool, sem: semaphore.NewWeighted(1)}
}

// Invoke runs call against the handle. tc.Suspend releases the scheduler's
// run token for call's duration; ctx governs queueing (a cancelled ctx
// abandons the wait for the semaphore without ever running call).
func (h *Handle) Invoke(ctx context.Context, tc Suspender, maxTries uint, call Invocation) (interface{}, error) {
	if tf, dead := h.deadFailure(); dead {
		return nil, tf
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)

	if tf, dead := h.deadFailure(); dead {
		return nil, tf
	}

	return tc.Suspend(func() (interface{}, error) {
		return h.invokeWithRetry(ctx, maxTries, call)
	})
}

func (h *Handle) deadFailure() (*ToolFailure, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deadErr, h.dead
}

func (h *Handle) invokeWithRetry(ctx context.Context, maxTries uint, call Invocation) (interface{}, error) {
	op := func() (interface{}, error) {
		v, err := call(ctx)
		if err == nil {
			return v, nil
		}
		var crash *CrashError
		if !errors.As(err, &crash) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries))
	if err == nil {
		return v, nil
	}

	var crash *CrashError
	if errors.As(err, &crash) {
		tf := &ToolFailure{Tool: h.tool, Stderr: crash.Stderr, Err: crash.Err}
		h.markDead(tf)
		return nil, tf
	}
	return nil, err
}

func (h *Handle) markDead(tf *ToolFailure) {
	h.mu.Lock()
	h.dead = true
	h.deadErr = tf
	h.mu.Unlock()
}

// Reset clears a handle's dead state, e.g. after a workspace restarts the
// backing process. Queued-but-not-yet-run Invoke calls made before Reset
// still observe the ToolFailure that was active when they checked.
func (h *Handle) Reset() {
	h.mu.Lock()
	h.dead = false
	h.deadErr = nil
	h.mu.Unlock()
}

// Pool hands out one Handle per (workspace, tool) pair, creating it lazily.
type Pool struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{handles: make(map[string]*Handle)}
}

// Handle returns the pooled handle for tool in workspace, creating one on
// first use.
func (p *Pool) Handle(workspace, tool string) *Handle {
	key := workspace + "\x00" + tool
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[key]
	if !ok {
		h = newHandle(tool)
		p.handles[key] = h
	}
	return h
}
