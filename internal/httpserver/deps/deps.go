package deps

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/muster/internal/domain"
	"github.com/MrSnakeDoc/muster/internal/logger"
)

// Orchestrator is the read side of the orchestrator the API needs.
type Orchestrator interface {
	AwaitInitialized(ctx context.Context) error
	Initialized() bool
	Pending() int
	ServiceByName(name string) (*domain.Service, bool)
	AllServices() []*domain.Service
}

// Prober reports on the external reachability probe.
type Prober interface {
	Targets() []*domain.Service
	LastRound() time.Time
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedCIDRS []string            // IPs allowed to access operational endpoints
	TrustProxy   bool                // true if running behind a trusted reverse proxy
	Orchestrator Orchestrator        // service state
	Prober       Prober              // nil when no external service is probed
	ProbeTrigger chan struct{}       // manual probe trigger (nil disables the endpoint)
	Gatherer     prometheus.Gatherer // metrics source, defaults to prometheus.DefaultGatherer
}
