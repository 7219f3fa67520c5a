package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/muster/internal/domain"
	"github.com/MrSnakeDoc/muster/internal/logger"
)

// ProbeFunc checks one address and returns nil when it answers.
type ProbeFunc func(ctx context.Context, addr string) error

// ExternalProber periodically checks whether external services answer and
// records the result on each service. It never launches or stops anything.
type ExternalProber struct {
	services      []*domain.Service
	protocol      string
	probe         ProbeFunc
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}

	mu        sync.RWMutex
	lastRound time.Time
}

// NewExternalProber creates a prober for the external services among
// services whose bindings use protocol. A zero interval probes once.
func NewExternalProber(
	services []*domain.Service,
	protocol string,
	probe ProbeFunc,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *ExternalProber {
	var targets []*domain.Service
	for _, svc := range services {
		if svc.Description.External && probeAddress(svc, protocol) != "" {
			targets = append(targets, svc)
		}
	}

	return &ExternalProber{
		services:      targets,
		protocol:      protocol,
		probe:         probe,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Targets returns the services this prober checks.
func (p *ExternalProber) Targets() []*domain.Service { return p.services }

// LastRound returns when the last probe round finished (zero if never).
func (p *ExternalProber) LastRound() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRound
}

// Start runs a first round in the background and then one per interval.
func (p *ExternalProber) Start(ctx context.Context) {
	if len(p.services) == 0 {
		p.logger.Debug("no external services to probe")
		return
	}

	p.logger.Info("probing external services",
		logger.Int("count", len(p.services)),
		logger.String("protocol", p.protocol),
		logger.Duration("interval", p.interval))

	go func() {
		p.Round(ctx)

		var tick <-chan time.Time
		if p.interval > 0 {
			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				p.Round(ctx)
			case <-p.manualTrigger:
				p.logger.Info("manual probe triggered")
				p.Round(ctx)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the prober. Safe to call more than once.
func (p *ExternalProber) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// Round probes every target concurrently and records reachability.
func (p *ExternalProber) Round(ctx context.Context) {
	var g errgroup.Group
	for _, svc := range p.services {
		g.Go(func() error {
			err := p.probe(ctx, probeAddress(svc, p.protocol))
			if ctx.Err() != nil {
				return nil
			}
			svc.SetReachable(err == nil)
			if err != nil {
				p.logger.Warn("external service unreachable",
					logger.String("service", svc.Name()),
					logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	p.lastRound = time.Now()
	p.mu.Unlock()
}

// probeAddress returns the first binding address using protocol.
func probeAddress(svc *domain.Service, protocol string) string {
	for _, b := range svc.Description.Bindings {
		if b.Protocol == protocol {
			return b.Address
		}
	}
	return ""
}
