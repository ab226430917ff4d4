// Package metrics exports update pass statistics as prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chazu/facet/vm"
)

// Pass results.
const (
	ResultOK    = "ok"
	ResultStale = "stale"
	ResultError = "error"
)

// Collector records update passes and rebuilds.
type Collector struct {
	// passes counts update passes. Labels: result (ok, stale, error)
	passes *prometheus.CounterVec

	// evaluated counts updating opcodes evaluated across passes.
	evaluated prometheus.Counter

	// skipped counts regions jumped over because their inputs were unchanged.
	skipped prometheus.Counter

	// listOps counts keyed list reconciliation steps.
	// Labels: op (retain, insert, move, delete)
	listOps *prometheus.CounterVec

	// rebuilds counts stale ranges re-rendered.
	rebuilds prometheus.Counter

	// duration measures pass latency in seconds.
	duration prometheus.Histogram
}

// New registers the collectors with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)
	return &Collector{
		passes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "update",
			Name:      "passes_total",
			Help:      "Update passes by result",
		}, []string{"result"}),
		evaluated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "update",
			Name:      "opcodes_evaluated_total",
			Help:      "Updating opcodes evaluated",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "update",
			Name:      "regions_skipped_total",
			Help:      "Regions skipped because their inputs were unchanged",
		}),
		listOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "list",
			Name:      "operations_total",
			Help:      "Keyed list reconciliation steps by operation",
		}, []string{"op"}),
		rebuilds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "update",
			Name:      "rebuilds_total",
			Help:      "Stale ranges rebuilt",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "update",
			Name:      "pass_duration_seconds",
			Help:      "Update pass latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

// ObservePass records one update pass.
func (c *Collector) ObservePass(s vm.PassStats, result string) {
	c.passes.WithLabelValues(result).Inc()
	c.evaluated.Add(float64(s.Evaluated))
	c.skipped.Add(float64(s.Skipped))
	c.listOps.WithLabelValues("retain").Add(float64(s.Retained))
	c.listOps.WithLabelValues("insert").Add(float64(s.Inserted))
	c.listOps.WithLabelValues("move").Add(float64(s.Moved))
	c.listOps.WithLabelValues("delete").Add(float64(s.Deleted))
	c.duration.Observe(s.Duration.Seconds())
}

// ObserveRebuild records one rebuilt range.
func (c *Collector) ObserveRebuild() {
	c.rebuilds.Inc()
}

// Handler serves the registry in the prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
