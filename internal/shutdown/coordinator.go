// Package shutdown terminates every launched service process in parallel
// when muster is torn down.
package shutdown

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/muster/internal/domain"
	"github.com/MrSnakeDoc/muster/internal/logger"
)

// Signaler is the readiness gate as seen by the coordinator.
type Signaler interface {
	Signal(name string) bool
}

// Terminator stops the process of one service.
type Terminator interface {
	Terminate(ctx context.Context, svc *domain.Service, pid int) error
}

// Result summarises one shutdown pass.
type Result struct {
	// Attempted is the number of services that had a pid.
	Attempted int
	// Failed is how many of those terminations returned an error.
	Failed int
}

// Coordinator fans termination out over all tracked processes and joins.
type Coordinator struct {
	gate   Signaler
	term   Terminator
	logger logger.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(gate Signaler, term Terminator, log logger.Logger) *Coordinator {
	return &Coordinator{
		gate:   gate,
		term:   term,
		logger: log,
	}
}

// Shutdown terminates every service that has a pid, one task per service,
// and returns once all of them finished. Failures are logged, never returned.
func (c *Coordinator) Shutdown(ctx context.Context, services []*domain.Service) Result {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		errs   error
		result Result
	)

	for _, svc := range services {
		pid, ok := svc.PID()
		if !ok {
			continue
		}
		result.Attempted++

		g.Go(func() error {
			// Unblock anyone still waiting for the system to come up.
			c.gate.Signal(svc.Name())

			c.logger.Debug("terminating service",
				logger.String("service", svc.Name()),
				logger.Int("pid", pid))

			if err := c.term.Terminate(ctx, svc, pid); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s (pid %d): %w", svc.Name(), pid, err))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()

	result.Failed = len(multierr.Errors(errs))
	if errs != nil {
		c.logger.Warn("some services could not be terminated",
			logger.Int("failed", result.Failed),
			logger.Int("attempted", result.Attempted),
			logger.Error(errs))
	}
	c.logger.Info("service termination finished",
		logger.Int("attempted", result.Attempted))

	return result
}
