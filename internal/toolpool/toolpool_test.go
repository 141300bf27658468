package toolpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// inlineSuspender runs fn without actually yielding anything — tests don't
// need scheduler.TaskContext's admission machinery, just the Suspend shape.
type inlineSuspender struct{}

func (inlineSuspender) Suspend(fn func() (interface{}, error)) (interface{}, error) { return fn() }

func TestInvokeReturnsSuccessValue(t *testing.T) {
	require := require.New(t)
	p := New()
	h := p.Handle("/ws", "dcd")

	v, err := h.Invoke(context.Background(), inlineSuspender{}, 3, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(err)
	require.Equal("ok", v)
}

func TestInvokeRetriesOnCrashThenSucceeds(t *testing.T) {
	require := require.New(t)
	p := New()
	h := p.Handle("/ws", "dcd")

	var attempts int32
	v, err := h.Invoke(context.Background(), inlineSuspender{}, 3, func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return nil, &CrashError{Err: errors.New("connection refused")}
		}
		return "recovered", nil
	})
	require.NoError(err)
	require.Equal("recovered", v)
	require.Equal(int32(3), attempts)
}

func TestInvokeGivesUpAfterMaxTriesAndMarksDead(t *testing.T) {
	require := require.New(t)
	p := New()
	h := p.Handle("/ws", "dscanner")

	_, err := h.Invoke(context.Background(), inlineSuspender{}, 2, func(ctx context.Context) (interface{}, error) {
		return nil, &CrashError{Stderr: "segfault", Err: errors.New("killed")}
	})
	require.Error(err)
	var tf *ToolFailure
	require.True(errors.As(err, &tf))
	require.Equal("dscanner", tf.Tool)
	require.Equal("segfault", tf.Stderr)

	// the handle stays dead: further calls fail immediately without running.
	ran := false
	_, err = h.Invoke(context.Background(), inlineSuspender{}, 2, func(ctx context.Context) (interface{}, error) {
		ran = true
		return nil, nil
	})
	require.Error(err)
	require.False(ran)
}

func TestInvokeDoesNotRetryNonCrashErrors(t *testing.T) {
	require := require.New(t)
	p := New()
	h := p.Handle("/ws", "dfmt")

	var attempts int32
	domainErr := errors.New("malformed source")
	_, err := h.Invoke(context.Background(), inlineSuspender{}, 3, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, domainErr
	})
	require.ErrorIs(err, domainErr)
	require.Equal(int32(1), attempts)
}

func TestResetClearsDeadHandle(t *testing.T) {
	require := require.New(t)
	p := New()
	h := p.Handle("/ws", "dcd")

	_, err := h.Invoke(context.Background(), inlineSuspender{}, 1, func(ctx context.Context) (interface{}, error) {
		return nil, &CrashError{Err: errors.New("boom")}
	})
	require.Error(err)

	h.Reset()

	v, err := h.Invoke(context.Background(), inlineSuspender{}, 1, func(ctx context.Context) (interface{}, error) {
		return "back", nil
	})
	require.NoError(err)
	require.Equal("back", v)
}

func TestHandleSerializesConcurrentInvocations(t *testing.T) {
	require := require.New(t)
	p := New()
	h := p.Handle("/ws", "dcd")

	var inFlight int32
	var maxObserved int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.Invoke(context.Background(), inlineSuspender{}, 1, func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					cur := atomic.LoadInt32(&maxObserved)
					if n <= cur || atomic.CompareAndSwapInt32(&maxObserved, cur, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil, nil
			})
		}()
	}
	wg.Wait()
	require.Equal(int32(1), maxObserved)
}

func TestPoolHandlesAreScopedPerWorkspaceAndTool(t *testing.T) {
	require := require.New(t)
	p := New()
	require.Same(p.Handle("/ws-a", "dcd"), p.Handle("/ws-a", "dcd"))
	require.NotSame(p.Handle("/ws-a", "dcd"), p.Handle("/ws-b", "dcd"))
	require.NotSame(p.Handle("/ws-a", "dcd"), p.Handle("/ws-a", "dmd"))
}
