// Package dispatch builds the variant -> ordered-plugin-list routing
// table and drives per-event fan-out: each plugin interested in an
// event's variant is tried in priority order until one consumes it.
package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/corvidbot/gateway/internal/plugin"
	"github.com/corvidbot/gateway/internal/wire"
)

// drainTimeout bounds how long Drain waits for each plugin's workers to
// exit on session teardown.
const drainTimeout = 3 * time.Second

type entry struct {
	plugin plugin.Plugin
	worker *plugin.Worker
}

// Dispatcher routes events to the plugins declared interested in their
// variant, highest priority first, stopping at the first plugin that
// reports it consumed the event.
type Dispatcher struct {
	logger  *slog.Logger
	byVariant map[wire.Variant][]*entry
	workers   []*plugin.Worker
}

// New builds the routing table from plugins' declared Interest(), starts
// each plugin's worker pool, and runs the broadcast-bus cycle check
// before returning. A detected cycle aborts construction with the
// diagnostic from plugin.DetectCycle.
func New(plugins []plugin.Plugin, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := plugin.DetectCycle(plugins); err != nil {
		return nil, err
	}

	d := &Dispatcher{logger: logger, byVariant: make(map[wire.Variant][]*entry)}

	for _, p := range plugins {
		w := plugin.NewWorker(p, logger)
		d.workers = append(d.workers, w)

		e := &entry{plugin: p, worker: w}
		for _, variant := range p.Interest() {
			d.byVariant[variant] = append(d.byVariant[variant], e)
		}
	}

	for _, list := range d.byVariant {
		sortByPriorityDescending(list)
	}
	for _, w := range d.workers {
		w.Start()
	}

	return d, nil
}

func sortByPriorityDescending(list []*entry) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].plugin.Priority() > list[j].plugin.Priority()
	})
}

// Dispatch runs the sequential consume-or-continue fan-out for one
// event: plugins registered for its variant are tried in priority
// order; the first to return true (consumed) stops the chain.
func (d *Dispatcher) Dispatch(ctx context.Context, event wire.Event) {
	for _, e := range d.byVariant[event.Variant()] {
		if e.worker.Submit(ctx, event) {
			return
		}
	}
}

// Drain cancels every plugin's worker pool and waits up to the bounded
// per-worker timeout for them to exit.
func (d *Dispatcher) Drain() {
	for _, w := range d.workers {
		w.Drain(drainTimeout)
	}
}
