package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-store statement latency and failures.
type Metrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cdd",
			Subsystem: "store",
			Name:      "statement_duration_seconds",
			Help:      "Latency of statements sent to a relational store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdd",
			Subsystem: "store",
			Name:      "statement_failures_total",
			Help:      "Statements that failed, by error kind.",
		}, []string{"store", "op", "kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.duration, m.failures)
	}
	return m
}

func (m *Metrics) observe(store, op string, d time.Duration, err error) {
	m.duration.WithLabelValues(store, op).Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(store, op, string(Classify(err))).Inc()
	}
}
