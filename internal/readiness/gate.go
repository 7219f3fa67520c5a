// Package readiness implements the system-wide readiness gate: a countdown over
// the bindable services that resolves once every one of them has signaled.
package readiness

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate is a multi-producer, multi-consumer, single-resolution barrier.
//
// Each participant counts at most once no matter how often it signals, so the
// counter can never go below zero.
type Gate struct {
	remaining atomic.Int64
	pending   map[string]*sync.Once // fixed at construction, read-only afterwards
	done      chan struct{}
	closeOnce sync.Once
	metrics   *Metrics
}

// New creates a gate over the given participant names. Duplicates count once.
// With no participants the gate is resolved immediately.
func New(names []string, metrics *Metrics) *Gate {
	g := &Gate{
		pending: make(map[string]*sync.Once, len(names)),
		done:    make(chan struct{}),
		metrics: metrics,
	}
	for _, n := range names {
		if _, ok := g.pending[n]; !ok {
			g.pending[n] = &sync.Once{}
		}
	}
	g.remaining.Store(int64(len(g.pending)))
	g.metrics.setPending(len(g.pending))

	if len(g.pending) == 0 {
		g.resolve()
	}
	return g
}

// Signal records that name is ready (or dead). It returns true only for the
// call that actually decremented the counter. Unknown names and repeated
// signals are no-ops.
func (g *Gate) Signal(name string) bool {
	once, ok := g.pending[name]
	if !ok {
		return false
	}

	counted := false
	once.Do(func() {
		counted = true
		left := g.remaining.Add(-1)
		g.metrics.setPending(int(max(left, 0)))
		if left == 0 {
			g.resolve()
		}
	})
	return counted
}

func (g *Gate) resolve() {
	g.closeOnce.Do(func() { close(g.done) })
}

// Done is closed once every participant has signaled.
func (g *Gate) Done() <-chan struct{} { return g.done }

// Initialized reports whether the gate has resolved, without blocking.
func (g *Gate) Initialized() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the gate resolves or ctx ends.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remaining returns how many participants have not signaled yet.
func (g *Gate) Remaining() int {
	return int(max(g.remaining.Load(), 0))
}

// Size returns the number of participants the gate was built with.
func (g *Gate) Size() int { return len(g.pending) }
