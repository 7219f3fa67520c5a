// Package orchestrator composes the registry, supervisor, readiness gate and
// shutdown coordinator behind the few entry points the rest of muster uses.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"vawter.tech/stopper"

	"github.com/MrSnakeDoc/muster/internal/domain"
	"github.com/MrSnakeDoc/muster/internal/logger"
	"github.com/MrSnakeDoc/muster/internal/readiness"
	"github.com/MrSnakeDoc/muster/internal/registry"
	"github.com/MrSnakeDoc/muster/internal/shutdown"
	"github.com/MrSnakeDoc/muster/internal/supervisor"
)

// SpecProvider supplies the launch spec of a service.
type SpecProvider interface {
	LaunchSpec(svc *domain.Service) (domain.LaunchSpec, error)
}

// Options tune an Orchestrator. The zero value is usable.
type Options struct {
	// Matcher detects readiness lines. Defaults to supervisor.DefaultMatcher.
	Matcher *supervisor.Matcher
	// StopGrace is how long a process gets between SIGTERM and kill.
	StopGrace time.Duration
	// Terminator overrides process termination, mostly for tests.
	Terminator shutdown.Terminator
	// Registerer receives supervisor and readiness metrics when set.
	Registerer prometheus.Registerer
}

// Orchestrator owns the runtime state of one set of services.
type Orchestrator struct {
	registry    *registry.Registry
	gate        *readiness.Gate
	supervisor  *supervisor.Supervisor
	coordinator *shutdown.Coordinator
	specs       SpecProvider
	logger      logger.Logger

	// sctx tracks the per-service supervisor goroutines.
	sctx *stopper.Context
	// runCtx scopes every launched process; cancelRun stops them all.
	runCtx    context.Context
	cancelRun context.CancelFunc

	mu       sync.Mutex
	started  bool
	stopped  bool
	launches []*supervisor.Launch

	shutdownOnce   sync.Once
	shutdownResult shutdown.Result
}

// New validates the descriptions and builds the registry and readiness gate.
// Configuration errors are returned and nothing is left running.
func New(descs []domain.ServiceDescription, specs SpecProvider, log logger.Logger, opts Options) (*Orchestrator, error) {
	reg, err := registry.FromDescriptions(descs)
	if err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	if opts.StopGrace <= 0 {
		opts.StopGrace = 5 * time.Second
	}
	matcher := supervisor.DefaultMatcher()
	if opts.Matcher != nil {
		matcher = *opts.Matcher
	}
	var term shutdown.Terminator = shutdown.ProcessTerminator{Grace: opts.StopGrace}
	if opts.Terminator != nil {
		term = opts.Terminator
	}

	gate := readiness.New(reg.BindableNames(), readiness.NewMetrics(opts.Registerer))
	sctx := stopper.WithContext(context.Background())
	runCtx, cancelRun := context.WithCancel(context.Background())

	o := &Orchestrator{
		registry:    reg,
		gate:        gate,
		coordinator: shutdown.NewCoordinator(gate, term, log),
		specs:       specs,
		logger:      log,
		sctx:        sctx,
		runCtx:      runCtx,
		cancelRun:   cancelRun,
	}
	o.supervisor = supervisor.New(gate, log,
		supervisor.WithMatcher(matcher),
		supervisor.WithMetrics(supervisor.NewMetrics(opts.Registerer)),
		supervisor.WithSpawner(o.spawn),
		supervisor.WithWaitDelay(opts.StopGrace),
	)

	log.Info("services registered",
		logger.Int("services", reg.Count()),
		logger.Int("bindable", gate.Size()))

	return o, nil
}

// spawn runs one supervisor unit under the stopper so Shutdown can join it.
// Once stopping, the unit runs inline; its launch context is already
// cancelled, so it fails fast without starting a process.
func (o *Orchestrator) spawn(fn func()) {
	accepted := o.sctx.Go(func(*stopper.Context) error {
		fn()
		return nil
	})
	if !accepted {
		fn()
	}
}

// Start launches every non-external service concurrently. It returns at once;
// use WaitStarted or AwaitInitialized to wait. Calling it twice, or after
// Shutdown, does nothing.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started || o.stopped {
		return
	}
	o.started = true

	for _, svc := range o.registry.All() {
		if svc.Description.External {
			o.logger.Info("external service, not launching",
				logger.String("service", svc.Name()))
			continue
		}

		spec, err := o.specs.LaunchSpec(svc)
		if err != nil {
			o.launches = append(o.launches, o.supervisor.Fail(svc, err))
			continue
		}
		o.launches = append(o.launches, o.supervisor.Launch(o.runCtx, svc, spec))
	}
}

// Launches returns the per-launch futures created by Start.
func (o *Orchestrator) Launches() []*supervisor.Launch {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*supervisor.Launch, len(o.launches))
	copy(out, o.launches)
	return out
}

// WaitStarted blocks until every launch resolved (ready or dead) or ctx ends.
func (o *Orchestrator) WaitStarted(ctx context.Context) error {
	for _, l := range o.Launches() {
		if _, err := l.Wait(ctx); err != nil && ctx.Err() != nil {
			return err
		}
	}
	return nil
}

// AwaitInitialized blocks until every bindable service signaled, or ctx ends.
func (o *Orchestrator) AwaitInitialized(ctx context.Context) error {
	return o.gate.Wait(ctx)
}

// Initialized reports whether the readiness gate resolved.
func (o *Orchestrator) Initialized() bool { return o.gate.Initialized() }

// Pending returns how many bindable services have not signaled yet.
func (o *Orchestrator) Pending() int { return o.gate.Remaining() }

// ServiceByName looks a service up.
func (o *Orchestrator) ServiceByName(name string) (*domain.Service, bool) {
	return o.registry.Get(name)
}

// AllServices returns every service in declaration order.
func (o *Orchestrator) AllServices() []*domain.Service {
	return o.registry.All()
}

// Shutdown terminates every launched process and waits for the supervisor
// units to drain, bounded by ctx. Only the first call does the work.
//
// Launches still on their way to a pid are cancelled first; the termination
// snapshot is taken only once every launch started or failed to start.
func (o *Orchestrator) Shutdown(ctx context.Context) shutdown.Result {
	o.shutdownOnce.Do(func() {
		o.mu.Lock()
		o.stopped = true
		launches := o.launches
		o.mu.Unlock()

		o.logger.Info("shutting down services")
		o.cancelRun()
		o.awaitAttempted(ctx, launches)

		o.shutdownResult = o.coordinator.Shutdown(ctx, o.registry.All())

		// Services that never got a pid still hold the gate.
		for _, name := range o.registry.BindableNames() {
			o.gate.Signal(name)
		}

		o.drain(ctx)
	})
	return o.shutdownResult
}

func (o *Orchestrator) awaitAttempted(ctx context.Context, launches []*supervisor.Launch) {
	for _, l := range launches {
		select {
		case <-l.Attempted():
		case <-ctx.Done():
			o.logger.Warn("gave up waiting for launches to start", logger.Error(ctx.Err()))
			return
		}
	}
}

// drain waits for every supervisor unit to return. No grace period is given
// to the stopper: the units end when their processes do.
func (o *Orchestrator) drain(ctx context.Context) {
	o.sctx.Stop(0)

	done := make(chan error, 1)
	go func() { done <- o.sctx.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			o.logger.Warn("supervisor units stopped with error", logger.Error(err))
		}
		o.logger.Info("all supervisor units stopped")
	case <-ctx.Done():
		o.logger.Warn("gave up waiting for supervisor units", logger.Error(ctx.Err()))
	}
}
