// Package plugin implements the per-plugin bounded queue and worker
// pool that the dispatcher hands events to, and the broadcast bus
// plugins use to publish/subscribe to named events among themselves.
package plugin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corvidbot/gateway/internal/wire"
)

// defaultQueueSize bounds a plugin's pending-event queue. Producers
// block once full; this is deliberate backpressure (see Worker.Submit).
const defaultQueueSize = 64

// Plugin is the event handler contract: a single typed Run method gated
// by the set of event variants it declares interest in.
type Plugin interface {
	Name() string
	Priority() int
	Consumers() int
	Interest() []wire.Variant
	Run(ctx context.Context, event wire.Event) bool
}

// Declarer is implemented by plugins that participate in the broadcast
// bus, declaring the named events they emit and the names they listen
// for. This is metadata the plugin states up front — not something
// inferred from its source.
type Declarer interface {
	Publishes() []string
	Subscribes() []string
}

type job struct {
	event wire.Event
	done  chan bool
}

// Worker owns one plugin's bounded queue and its N consumer goroutines.
type Worker struct {
	plugin Plugin
	logger *slog.Logger

	queue  chan job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker wraps p with a bounded queue sized for backpressure, not
// throughput.
func NewWorker(p Plugin, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{plugin: p, logger: logger, queue: make(chan job, defaultQueueSize)}
}

// Start spins up Consumers() worker goroutines.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	n := w.plugin.Consumers()
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go w.consume(ctx)
	}
}

// Submit enqueues event and blocks until the plugin's handler returns a
// consumed verdict. Enqueue itself blocks if the queue is full — an
// unbounded wait by design (see the error-handling table): a slow
// plugin throttles only its own variant's dispatch.
func (w *Worker) Submit(ctx context.Context, event wire.Event) bool {
	done := make(chan bool, 1)
	select {
	case w.queue <- job{event: event, done: done}:
	case <-ctx.Done():
		return false
	}
	select {
	case consumed := <-done:
		return consumed
	case <-ctx.Done():
		return false
	}
}

func (w *Worker) consume(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case j, ok := <-w.queue:
			if !ok {
				return
			}
			j.done <- w.runSafely(ctx, j.event)
		case <-ctx.Done():
			return
		}
	}
}

// runSafely invokes the plugin's handler, treating a panic as if the
// plugin consumed the event: failing closed avoids a crashing plugin
// cascading the same event into every lower-priority plugin.
func (w *Worker) runSafely(ctx context.Context, event wire.Event) (consumed bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("plugin: handler panicked", "plugin", w.plugin.Name(), "panic", r)
			consumed = true
		}
	}()
	return w.plugin.Run(ctx, event)
}

// Drain cancels the worker's consumer goroutines and waits up to
// timeout for them to exit. Queued-but-unconsumed jobs are abandoned;
// their callers are already blocked on ctx, not on this drain.
func (w *Worker) Drain(timeout time.Duration) {
	if w.cancel == nil {
		return
	}
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		w.logger.Error("plugin: consumer drain timed out", "plugin", w.plugin.Name())
	}
}
