package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rf-peixoto/hyperarray/accesslog"
)

// MetricsRecorder counts accesses by operation, dimension and outcome.
type MetricsRecorder struct {
	accesses *prometheus.CounterVec
}

// NewMetricsRecorder creates the access counter and registers it.
func NewMetricsRecorder(reg prometheus.Registerer) *MetricsRecorder {
	r := &MetricsRecorder{
		accesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hyperarray",
				Name:      "accesses_total",
				Help:      "Number of get and set attempts.",
			},
			[]string{"op", "dimension", "outcome"},
		),
	}

	reg.MustRegister(r.accesses)

	return r
}

// Record counts the access.
func (r *MetricsRecorder) Record(rec accesslog.Record) {
	outcome := "ok"
	if rec.Trapped {
		outcome = "trapped"
	}

	r.accesses.WithLabelValues(rec.Op.String(), rec.Dimension, outcome).Inc()
}

// Count returns the counter for a label combination.
func (r *MetricsRecorder) Count(op, dimension, outcome string) prometheus.Counter {
	return r.accesses.WithLabelValues(op, dimension, outcome)
}
