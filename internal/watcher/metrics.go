package watcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes dispatch counters for /metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	dispatchTotal *prometheus.CounterVec
	workerSeconds prometheus.Histogram
	inflight      prometheus.Gauge
}

// NewMetrics registers the watcher collectors on reg, or the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketdesk",
			Subsystem: "watcher",
			Name:      "dispatch_total",
			Help:      "Files handled by the watcher, by outcome",
		}, []string{"outcome"}),
		workerSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ticketdesk",
			Subsystem: "watcher",
			Name:      "worker_seconds",
			Help:      "Wall-clock duration of intake worker processes",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120, 180},
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ticketdesk",
			Subsystem: "watcher",
			Name:      "inflight",
			Help:      "Files currently being stabilized or processed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.dispatchTotal, m.workerSeconds, m.inflight)
	return m
}

func (m *Metrics) observeDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeWorker(d time.Duration) {
	if m == nil {
		return
	}
	m.workerSeconds.Observe(d.Seconds())
}

func (m *Metrics) setInflight(n int) {
	if m == nil {
		return
	}
	m.inflight.Set(float64(n))
}
