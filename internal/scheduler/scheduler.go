// Package scheduler implements the cooperative task scheduler that owns
// every in-flight request: admission ordering, cancellation, and soft
// per-method deadlines.
//
// Go has no native fibers, so "single dispatch thread, explicit yields" is
// emulated with a single-slot token passed between task goroutines: outside
// TaskContext.Suspend exactly one task's code runs at any instant, and
// control only changes hands when a task calls TaskContext.Yield or
// TaskContext.Suspend at a designated suspension point (or when it returns). This gives the same ordering and cancellation contract a true
// fiber pool would, built from ordinary goroutines.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/rpc"
)

// ErrShuttingDown is returned by TaskContext.Yield once Shutdown has been
// called, instead of the task's ordinary cancellation error. Callers
// translate it to an InvalidRequest response, per the server lifecycle's
// drain behavior.
var ErrShuttingDown = fmt.Errorf("scheduler: server is shutting down")

// Cancelled is returned by TaskContext.Yield when the owning request was
// cancelled via $/cancelRequest or hit its soft deadline.
type Cancelled struct {
	ID rpc.ID
}

func (c *Cancelled) Error() string { return fmt.Sprintf("scheduler: request %s cancelled", c.ID) }

// Result is what a submitted task eventually produces.
type Result struct {
	Value interface{}
	Err   error
}

// TaskFunc is handler code run under the scheduler. It must call
// TaskContext.Yield in long loops and run any call that would otherwise
// block (subprocess I/O, filesystem reads, awaiting a client reply) through
// TaskContext.Suspend — the scheduler cannot preempt a task that never yields.
type TaskFunc func(tc *TaskContext) (interface{}, error)

// TaskContext is the context handed to a running task. It embeds
// context.Context so handler code can pass it straight through to anything
// that accepts one.
type TaskContext struct {
	context.Context
	sched *Scheduler
	id    rpc.ID
}

// Yield releases the scheduler's run token, gives other ready tasks a
// chance to run, then reacquires it before returning. It and Suspend are
// the only program points at which another task's code can execute. Returns the
// task's terminal error if the request was cancelled, hit its deadline, or
// the server is shutting down.
func (tc *TaskContext) Yield() error {
	if err := tc.checkDone(); err != nil {
		return err
	}
	tc.sched.releaseToken()
	runtime.Gosched()
	tc.sched.acquireToken()
	return tc.checkDone()
}

// Suspend releases the run token for the duration of fn, the shape every
// other suspension point (subprocess read/write, filesystem wait, client
// round trip) reduces to: fn runs with no other task holding the floor
// excluded, and the caller gets it back before Suspend returns. Unlike
// Yield, Suspend does not itself check cancellation before or while fn
// runs — callers that want fn abandoned on cancellation must thread tc into
// fn themselves (e.g. an exec.CommandContext).
func (tc *TaskContext) Suspend(fn func() (interface{}, error)) (interface{}, error) {
	if err := tc.checkDone(); err != nil {
		return nil, err
	}
	tc.sched.releaseToken()
	v, err := fn()
	tc.sched.acquireToken()
	if done := tc.checkDone(); done != nil {
		return nil, done
	}
	return v, err
}

func (tc *TaskContext) checkDone() error {
	if tc.sched.isShuttingDown() {
		return ErrShuttingDown
	}
	if tc.Err() != nil {
		return &Cancelled{ID: tc.id}
	}
	return nil
}

// inFlightTask is one submitted task's cancellation handle. A multi-binding
// request (e.g. workspace/symbol with several registered bindings) submits
// several tasks under the same id; each gets its own entry so cancelling
// the request cancels every one of them, and each task's completion only
// removes its own entry rather than any sibling's.
type inFlightTask struct {
	method   string
	cancel   context.CancelFunc
	deadline *time.Timer
}

// inFlightRequest is the set of still-running tasks sharing one request id.
type inFlightRequest struct {
	tasks map[uint64]*inFlightTask
}

// Scheduler admits, runs, and cancels tasks.
type Scheduler struct {
	log *logging.Logger

	token chan struct{} // single-slot "run permit", the emulated dispatch thread

	mu             sync.Mutex
	inflight       map[string]*inFlightRequest
	nextTaskID     uint64
	methodTail     map[string]chan struct{} // last-admitted task's ticket, per method
	methodDeadline map[string]time.Duration
	shuttingDown   bool
}

// New returns a Scheduler ready to accept tasks.
func New(log *logging.Logger) *Scheduler {
	s := &Scheduler{
		log:            log,
		token:          make(chan struct{}, 1),
		inflight:       make(map[string]*inFlightRequest),
		methodTail:     make(map[string]chan struct{}),
		methodDeadline: make(map[string]time.Duration),
	}
	s.token <- struct{}{}
	return s
}

func (s *Scheduler) acquireToken() { <-s.token }
func (s *Scheduler) releaseToken() { s.token <- struct{}{} }

func (s *Scheduler) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

// admissionTicket returns the previous task's ticket for method (nil if
// this is the first) and installs a fresh ticket as the new tail. Called
// synchronously from Submit so that ticket order always matches the order
// Submit was called in, regardless of how the spawned goroutines are
// scheduled afterward.
func (s *Scheduler) admissionTicket(method string) (prev chan struct{}, mine chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.methodTail[method]
	mine = make(chan struct{})
	s.methodTail[method] = mine
	return prev, mine
}

// SetDeadline configures method's soft per-request deadline. A zero
// duration (the default) means no deadline.
func (s *Scheduler) SetDeadline(method string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methodDeadline[method] = d
}

// Submit admits a task for method, identified by id (the zero ID for
// notifications, which have no response to cancel or deliver). Tasks for
// the same method begin in the order Submit was called; tasks for
// different methods may begin in any order and interleave freely once
// started. The returned channel receives exactly one Result.
func (s *Scheduler) Submit(ctx context.Context, method string, id rpc.ID, fn TaskFunc) <-chan Result {
	resultCh := make(chan Result, 1)

	if s.isShuttingDown() {
		resultCh <- Result{Err: ErrShuttingDown}
		return resultCh
	}

	taskCtx, cancel := context.WithCancel(ctx)
	key := id.String()
	task := &inFlightTask{method: method, cancel: cancel}

	var taskID uint64
	s.mu.Lock()
	if !id.IsZero() {
		req, ok := s.inflight[key]
		if !ok {
			req = &inFlightRequest{tasks: make(map[uint64]*inFlightTask)}
			s.inflight[key] = req
		}
		s.nextTaskID++
		taskID = s.nextTaskID
		req.tasks[taskID] = task
	}
	deadline := s.methodDeadline[method]
	s.mu.Unlock()

	prevTicket, myTicket := s.admissionTicket(method)

	go func() {
		if prevTicket != nil {
			<-prevTicket // wait for the previous same-method task to begin its turn
		}
		s.acquireToken() // this task now holds the floor
		close(myTicket)  // the next same-method task may now begin

		if deadline > 0 {
			task.deadline = time.AfterFunc(deadline, func() {
				s.log.Warnf("request %s (%s) exceeded its %s deadline; cancelling", id, method, deadline)
				cancel()
			})
		}

		tc := &TaskContext{Context: taskCtx, sched: s, id: id}
		val, err := fn(tc)

		if task.deadline != nil {
			task.deadline.Stop()
		}
		s.releaseToken()

		if !id.IsZero() {
			s.mu.Lock()
			if req, ok := s.inflight[key]; ok {
				delete(req.tasks, taskID)
				if len(req.tasks) == 0 {
					delete(s.inflight, key)
				}
			}
			s.mu.Unlock()
		}
		cancel()

		resultCh <- Result{Value: val, Err: err}
		close(resultCh)
	}()

	return resultCh
}

// Cancel implements $/cancelRequest: it sets the cancel flag on the
// matching in-flight request and on every task it owns — a multi-binding
// request submits one task per binding under the same id, and all of them
// must observe cancellation, not just whichever was submitted last.
// Cancelling an already-completed or unknown id is a no-op.
func (s *Scheduler) Cancel(id rpc.ID) {
	s.mu.Lock()
	req, ok := s.inflight[id.String()]
	var cancels []context.CancelFunc
	if ok {
		cancels = make([]context.CancelFunc, 0, len(req.tasks))
		for _, t := range req.tasks {
			cancels = append(cancels, t.cancel)
		}
	}
	s.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Shutdown stops admitting new tasks (Submit now fails fast with
// ErrShuttingDown) and cancels every task currently in flight so each
// observes ErrShuttingDown at its next Yield.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	var cancels []context.CancelFunc
	for _, req := range s.inflight {
		for _, t := range req.tasks {
			cancels = append(cancels, t.cancel)
		}
	}
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}
