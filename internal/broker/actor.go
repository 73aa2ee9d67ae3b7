package broker

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"notibroker/internal/eventbus"
	logx "notibroker/pkg/logx"
)

// ErrStopped is returned for operations submitted after Stop, or cut off by
// it before a result was produced.
var ErrStopped = errors.New("broker stopped")

const defaultQueueDepth = 256

// task is one unit of serialized work. done is nil for fire-and-forget
// submissions.
type task struct {
	name string
	fn   func()
	done chan struct{}
}

// actor is the single-consumer worker that owns all broker state. Every
// mutation of the registry, subscriber list or preference cache runs on its
// goroutine, strictly in submission order.
type actor struct {
	queue  chan task
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	log    logx.Logger
	bus    eventbus.Bus
}

func newActor(depth int, log logx.Logger, bus eventbus.Bus) *actor {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	return &actor{
		queue:  make(chan task, depth),
		stopCh: make(chan struct{}),
		log:    log.With(logx.String("comp", "broker.actor")),
		bus:    bus,
	}
}

func (a *actor) start() {
	a.wg.Add(1)
	go a.run()
}

func (a *actor) stop() {
	a.once.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}

func (a *actor) run() {
	defer a.wg.Done()
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-a.stopCh:
			return
		default:
		}
		select {
		case <-a.stopCh:
			return
		case t := <-a.queue:
			a.execOne(t)
		}
	}
}

func (a *actor) execOne(t task) {
	start := time.Now()
	if t.done != nil {
		defer close(t.done)
	}
	// One bad operation must not kill the worker; the sentinel state stays
	// intact and the caller observes whatever the closure recorded before
	// the panic.
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("task.panic", logx.String("task", t.name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			if a.bus != nil {
				a.bus.Publish(eventbus.Event{Type: eventbus.TypeTaskPanic, Data: eventbus.TaskPanic{Task: t.name, Panic: fmt.Sprint(r)}})
			}
		}
	}()
	t.fn()
	if d := time.Since(start); d >= 250*time.Millisecond {
		a.log.Warn("task.slow", logx.String("task", t.name), logx.Duration("dur", d))
	}
}

// submit runs fn on the worker and blocks until it has executed. When the
// actor stops first, fn may or may not have run; callers treat ErrStopped
// as shutdown, not as a state verdict.
func (a *actor) submit(name string, fn func()) error {
	t := task{name: name, fn: fn, done: make(chan struct{})}
	select {
	case a.queue <- t:
	case <-a.stopCh:
		return ErrStopped
	}
	select {
	case <-t.done:
		return nil
	case <-a.stopCh:
		return ErrStopped
	}
}

// submitAsync queues fn without waiting for it. Used for event-shaped work
// arriving from collaborator threads (peer deaths, engine state flips,
// inbound distributed traffic).
func (a *actor) submitAsync(name string, fn func()) {
	t := task{name: name, fn: fn}
	select {
	case a.queue <- t:
	case <-a.stopCh:
		a.log.Debug("task.dropped", logx.String("task", name))
	}
}
