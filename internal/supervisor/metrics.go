package supervisor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for service launches.
// All methods are nil-safe: calls on a nil *Metrics are no-ops.
type Metrics struct {
	// LaunchesTotal counts launch attempts.
	LaunchesTotal prometheus.Counter

	// ReadyTotal counts services whose readiness line was detected.
	ReadyTotal prometheus.Counter

	// LaunchFailuresTotal counts services that could not be started.
	LaunchFailuresTotal prometheus.Counter

	// ExitsTotal counts process exits by service.
	ExitsTotal *prometheus.CounterVec

	// Running tracks child processes currently alive.
	Running prometheus.Gauge

	// ReadySeconds observes the time from launch to readiness line.
	ReadySeconds prometheus.Histogram
}

// NewMetrics creates and registers supervisor metrics with reg.
// If reg is nil, metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LaunchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "muster",
			Subsystem: "supervisor",
			Name:      "launches_total",
			Help:      "Total number of service launch attempts",
		}),
		ReadyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "muster",
			Subsystem: "supervisor",
			Name:      "ready_total",
			Help:      "Total number of services that announced a binding",
		}),
		LaunchFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "muster",
			Subsystem: "supervisor",
			Name:      "launch_failures_total",
			Help:      "Total number of services that could not be started",
		}),
		ExitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muster",
			Subsystem: "supervisor",
			Name:      "exits_total",
			Help:      "Total number of child process exits by service",
		}, []string{"service"}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "muster",
			Subsystem: "supervisor",
			Name:      "running",
			Help:      "Number of child processes currently running",
		}),
		ReadySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "muster",
			Subsystem: "supervisor",
			Name:      "ready_seconds",
			Help:      "Time from launch to readiness line",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.LaunchesTotal,
			m.ReadyTotal,
			m.LaunchFailuresTotal,
			m.ExitsTotal,
			m.Running,
			m.ReadySeconds,
		)
	}

	return m
}

func (m *Metrics) launched() {
	if m == nil {
		return
	}
	m.LaunchesTotal.Inc()
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.LaunchFailuresTotal.Inc()
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.Running.Inc()
}

func (m *Metrics) ready(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ReadyTotal.Inc()
	m.ReadySeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) exited(service string) {
	if m == nil {
		return
	}
	m.Running.Dec()
	m.ExitsTotal.WithLabelValues(service).Inc()
}
