package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/rpc"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	return New(logging.Default("[test] "))
}

func TestSameMethodTasksStartInSubmissionOrder(t *testing.T) {
	require := require.New(t)
	s := newTestScheduler()

	var mu sync.Mutex
	var started []int
	release := make(chan struct{})
	var results []<-chan Result

	// Submit all three back-to-back, with no synchronization between calls:
	// admission order must still match submission order.
	for i := 0; i < 3; i++ {
		i := i
		results = append(results, s.Submit(context.Background(), "textDocument/hover", rpc.NewNumberID(int64(i)), func(tc *TaskContext) (interface{}, error) {
			mu.Lock()
			started = append(started, i)
			mu.Unlock()
			<-release
			return nil, nil
		}))
	}
	close(release)
	for _, r := range results {
		<-r
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal([]int{0, 1, 2}, started)
}

func TestCancelSetsFlagObservedAtYield(t *testing.T) {
	require := require.New(t)
	s := newTestScheduler()
	id := rpc.NewNumberID(1)

	reachedYield := make(chan struct{})
	resultCh := s.Submit(context.Background(), "textDocument/hover", id, func(tc *TaskContext) (interface{}, error) {
		close(reachedYield)
		for {
			if err := tc.Yield(); err != nil {
				return nil, err
			}
		}
	})

	<-reachedYield
	s.Cancel(id)

	res := <-resultCh
	var cancelled *Cancelled
	require.ErrorAs(res.Err, &cancelled)
}

func TestCancelUnknownIDIsNoOp(t *testing.T) {
	s := newTestScheduler()
	require.NotPanics(t, func() {
		s.Cancel(rpc.NewNumberID(999))
	})
}

func TestDeadlineExpiryCancels(t *testing.T) {
	require := require.New(t)
	s := newTestScheduler()
	s.SetDeadline("textDocument/definition", 10*time.Millisecond)

	resultCh := s.Submit(context.Background(), "textDocument/definition", rpc.NewNumberID(1), func(tc *TaskContext) (interface{}, error) {
		for {
			if err := tc.Yield(); err != nil {
				return nil, err
			}
			time.Sleep(time.Millisecond)
		}
	})

	res := <-resultCh
	require.Error(res.Err)
}

func TestShutdownDrainsInFlightTasks(t *testing.T) {
	require := require.New(t)
	s := newTestScheduler()

	reachedYield := make(chan struct{})
	resultCh := s.Submit(context.Background(), "textDocument/hover", rpc.NewNumberID(1), func(tc *TaskContext) (interface{}, error) {
		close(reachedYield)
		for {
			if err := tc.Yield(); err != nil {
				return nil, err
			}
		}
	})
	<-reachedYield

	s.Shutdown()
	res := <-resultCh
	require.ErrorIs(res.Err, ErrShuttingDown)
}

func TestSubmitAfterShutdownFailsFast(t *testing.T) {
	require := require.New(t)
	s := newTestScheduler()
	s.Shutdown()

	resultCh := s.Submit(context.Background(), "textDocument/hover", rpc.NewNumberID(1), func(tc *TaskContext) (interface{}, error) {
		return "should not run", nil
	})
	res := <-resultCh
	require.ErrorIs(res.Err, ErrShuttingDown)
}

func TestCancelReachesEveryTaskSubmittedUnderSameID(t *testing.T) {
	require := require.New(t)
	s := newTestScheduler()
	id := rpc.NewNumberID(1)

	// workspace/symbol-style multi-binding request: two tasks submitted
	// under the same id. The first finishes quickly; the second must still
	// be cancellable afterward, and Cancel must reach both.
	fastDone := make(chan struct{})
	fastResult := s.Submit(context.Background(), "workspace/symbol", id, func(tc *TaskContext) (interface{}, error) {
		close(fastDone)
		return "fast", nil
	})

	slowReachedYield := make(chan struct{})
	slowResult := s.Submit(context.Background(), "workspace/symbol", id, func(tc *TaskContext) (interface{}, error) {
		close(slowReachedYield)
		for {
			if err := tc.Yield(); err != nil {
				return nil, err
			}
		}
	})

	<-fastDone
	require.NoError((<-fastResult).Err)

	<-slowReachedYield
	s.Cancel(id)

	res := <-slowResult
	var cancelled *Cancelled
	require.ErrorAs(res.Err, &cancelled)
}

func TestNotificationUsesZeroIDAndIsNotCancellable(t *testing.T) {
	require := require.New(t)
	s := newTestScheduler()

	resultCh := s.Submit(context.Background(), "textDocument/didOpen", rpc.ID{}, func(tc *TaskContext) (interface{}, error) {
		return "ok", nil
	})
	res := <-resultCh
	require.NoError(res.Err)
	require.Equal("ok", res.Value)
}
