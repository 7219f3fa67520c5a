package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/muster/internal/domain"
)

// Outcome tells why a launch resolved.
type Outcome int

const (
	// OutcomePending means the launch has not resolved yet.
	OutcomePending Outcome = iota
	// OutcomeBound means the readiness line was seen.
	OutcomeBound
	// OutcomeStarted means a service without bindings was started.
	OutcomeStarted
	// OutcomeExited means the process ended before announcing readiness.
	OutcomeExited
	// OutcomeFailed means the process could not be started at all.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBound:
		return "bound"
	case OutcomeStarted:
		return "started"
	case OutcomeExited:
		return "exited"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Ready reports whether the outcome means the service is up.
func (o Outcome) Ready() bool {
	return o == OutcomeBound || o == OutcomeStarted
}

// Launch is the one-shot completion of a single service launch.
// It resolves exactly once: ready, or dead.
type Launch struct {
	// ID identifies the execution unit running this launch.
	ID      string
	Service *domain.Service

	started    time.Time
	once       sync.Once
	signalOnce sync.Once
	done       chan struct{}

	attemptOnce sync.Once
	attempted   chan struct{}

	mu      sync.RWMutex
	outcome Outcome
	err     error
}

func newLaunch(svc *domain.Service) *Launch {
	return &Launch{
		ID:      uuid.NewString(),
		Service: svc,
		started: time.Now(),
		done:    make(chan struct{}),

		attempted: make(chan struct{}),
	}
}

func (l *Launch) markAttempted() {
	l.attemptOnce.Do(func() { close(l.attempted) })
}

// Attempted is closed once the process was started or failed to start.
// After that the service either has a pid or an exit code.
func (l *Launch) Attempted() <-chan struct{} { return l.attempted }

// resolve completes the launch. Only the first call has an effect.
func (l *Launch) resolve(o Outcome, err error) bool {
	resolved := false
	l.once.Do(func() {
		l.mu.Lock()
		l.outcome = o
		l.err = err
		l.mu.Unlock()
		close(l.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the launch resolved.
func (l *Launch) Done() <-chan struct{} { return l.done }

// Resolved reports whether the launch completed, without blocking.
func (l *Launch) Resolved() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Outcome returns the resolution, or OutcomePending.
func (l *Launch) Outcome() Outcome {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.outcome
}

// Err returns the launch failure, if any.
func (l *Launch) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.err
}

// Wait blocks until the launch resolves or ctx ends.
func (l *Launch) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-l.done:
		return l.Outcome(), l.Err()
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}
