package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/scheduler"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	log := logging.Default("[test] ")
	return New(log, scheduler.New(log))
}

func TestSubscribersFireInRegistrationOrder(t *testing.T) {
	require := require.New(t)
	d := newTestDispatcher()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{}, 3)

	for i := 0; i < 3; i++ {
		i := i
		d.Subscribe(AddedProject, func(tc *scheduler.TaskContext, payload interface{}) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			done <- struct{}{}
			return nil
		})
	}

	d.Fire(context.Background(), AddedProject, nil)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for subscribers")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal([]int{0, 1, 2}, order)
}

func TestSubscriberFailureDoesNotStopSiblings(t *testing.T) {
	require := require.New(t)
	d := newTestDispatcher()

	ran := make(chan struct{}, 1)
	d.Subscribe(ProjectAvailable, func(tc *scheduler.TaskContext, payload interface{}) error {
		return assertError
	})
	d.Subscribe(ProjectAvailable, func(tc *scheduler.TaskContext, payload interface{}) error {
		close(ran)
		return nil
	})

	d.Fire(context.Background(), ProjectAvailable, nil)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("second subscriber never ran after first failed")
	}
	require.True(true)
}

var assertError = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestPayloadIsPassedToSubscribers(t *testing.T) {
	require := require.New(t)
	d := newTestDispatcher()

	received := make(chan interface{}, 1)
	d.Subscribe(AddingProject, func(tc *scheduler.TaskContext, payload interface{}) error {
		received <- payload
		return nil
	})

	d.Fire(context.Background(), AddingProject, "workspace-root")

	select {
	case v := <-received:
		require.Equal("workspace-root", v)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received payload")
	}
}

func TestFireWithNoSubscribersIsNoOp(t *testing.T) {
	d := newTestDispatcher()
	require.NotPanics(t, func() {
		d.Fire(context.Background(), RegisteredComponents, nil)
	})
}
