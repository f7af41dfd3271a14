package virtual

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts virtual light operations and child failures.
type Metrics struct {
	operations    *prometheus.CounterVec
	childFailures *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewMetrics creates the virtual light metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graylight_virtual_operations_total",
				Help: "Apply and resolve operations on virtual lights, by outcome.",
			},
			[]string{"op", "outcome"},
		),
		childFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graylight_virtual_child_failures_total",
				Help: "Children that did not take part in an operation, by error kind.",
			},
			[]string{"op", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graylight_virtual_operation_duration_seconds",
				Help:    "Duration of apply and resolve on virtual lights.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.childFailures, m.duration)
	}
	return m
}

func (m *Metrics) observe(res Result, started time.Time) {
	if m == nil {
		return
	}
	outcome := "ok"
	failed := res.Failed()
	switch {
	case res.Err != nil:
		outcome = "error"
	case len(failed) > 0:
		outcome = "partial"
	}
	m.operations.WithLabelValues(res.Op, outcome).Inc()
	m.duration.WithLabelValues(res.Op).Observe(time.Since(started).Seconds())
	for _, c := range failed {
		m.childFailures.WithLabelValues(res.Op, string(c.Kind)).Inc()
	}
}
