package readiness

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the gate counter. All methods are nil-safe.
type Metrics struct {
	Pending prometheus.Gauge
}

// NewMetrics creates the gate metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "muster",
			Subsystem: "readiness",
			Name:      "pending",
			Help:      "Number of bindable services that have not announced readiness yet",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Pending)
	}
	return m
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}
