// Package events fires the server's internal lifecycle hooks —
// onRegisteredComponents, onProjectAvailable, onAddingProject,
// onAddedProject — to whatever handler modules subscribed to them.
package events

import (
	"context"
	"sync"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/rpc"
	"github.com/saibing/served/internal/scheduler"
)

// Name identifies one of the internal lifecycle events.
type Name string

const (
	RegisteredComponents Name = "onRegisteredComponents"
	ProjectAvailable     Name = "onProjectAvailable"
	AddingProject        Name = "onAddingProject"
	AddedProject         Name = "onAddedProject"
)

// Subscriber handles one firing of an event. tc lets it Yield like any
// other scheduled task.
type Subscriber func(tc *scheduler.TaskContext, payload interface{}) error

// Dispatcher holds the subscriber registry and fires events through the
// scheduler so subscriber code runs under the same cooperative pool as
// request/notification handlers.
type Dispatcher struct {
	log   *logging.Logger
	sched *scheduler.Scheduler

	mu          sync.Mutex
	subscribers map[Name][]Subscriber
}

// New returns an empty Dispatcher.
func New(log *logging.Logger, sched *scheduler.Scheduler) *Dispatcher {
	return &Dispatcher{
		log:         log,
		sched:       sched,
		subscribers: make(map[Name][]Subscriber),
	}
}

// Subscribe adds sub to name's subscriber list. Subscribers for one event
// fire in the order they were subscribed.
func (d *Dispatcher) Subscribe(name Name, sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[name] = append(d.subscribers[name], sub)
}

// Fire schedules one task per subscriber of name and returns without
// waiting for them to finish — a subscriber that called Fire from inside
// its own task would otherwise deadlock waiting on itself. Subscribers for
// the same event still run in registration order: they share the
// scheduler's per-method ticket chain, keyed here by the event name.
// A subscriber's failure is logged and never affects its siblings.
func (d *Dispatcher) Fire(ctx context.Context, name Name, payload interface{}) {
	d.mu.Lock()
	subs := make([]Subscriber, len(d.subscribers[name]))
	copy(subs, d.subscribers[name])
	d.mu.Unlock()

	for i, sub := range subs {
		i, sub := i, sub
		resultCh := d.sched.Submit(ctx, string(name), rpc.ID{}, func(tc *scheduler.TaskContext) (interface{}, error) {
			return nil, sub(tc, payload)
		})
		go func() {
			res := <-resultCh
			if res.Err != nil {
				d.log.Errorf("events: subscriber %d of %s failed: %v", i, name, res.Err)
			}
		}()
	}
}
