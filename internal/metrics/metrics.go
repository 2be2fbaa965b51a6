package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry  *prometheus.Registry
	Mutations *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Pending   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tanbroker",
		Name:      "mutations_total",
		Help:      "Brokerage mutation steps by family, phase and outcome.",
	}, []string{"family", "phase", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tanbroker",
		Name:      "mutation_duration_ms",
		Help:      "Brokerage call latency in milliseconds.",
		Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"family", "phase"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tanbroker",
		Name:      "pending_actions",
		Help:      "Validated actions waiting for commit or discard.",
	})
	reg.MustRegister(mutations, latency, pending)
	return &Metrics{registry: reg, Mutations: mutations, LatencyMS: latency, Pending: pending}
}

// Observe records one brokerage round trip. A nil receiver is a no-op.
func (m *Metrics) Observe(family, phase, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(family, phase, outcome).Inc()
	m.LatencyMS.WithLabelValues(family, phase).Observe(float64(time.Since(started).Milliseconds()))
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
