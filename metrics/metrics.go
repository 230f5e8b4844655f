// Package metrics exports module lifecycle transitions to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skekre98/zamt/core"
)

const namespace = "zamt"

// Collector is a core.Observer recording per-module state, step durations
// and failures.
type Collector struct {
	state    *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewCollector registers the lifecycle metrics on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "module",
			Name:      "state",
			Help:      "1 for the current lifecycle state of a module, 0 otherwise.",
		}, []string{"module", "state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "module",
			Name:      "transition_duration_seconds",
			Help:      "Time spent in a lifecycle step, by the state it ended in.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"module", "state"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "module",
			Name:      "failures_total",
			Help:      "Lifecycle steps that ended with an error.",
		}, []string{"module"}),
	}
	for _, col := range []prometheus.Collector{c.state, c.duration, c.failures} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) Observe(t core.Transition) {
	c.state.WithLabelValues(t.Module, t.From.String()).Set(0)
	c.state.WithLabelValues(t.Module, t.To.String()).Set(1)
	if t.Duration > 0 {
		c.duration.WithLabelValues(t.Module, t.To.String()).Observe(t.Duration.Seconds())
	}
	if t.Err != nil {
		c.failures.WithLabelValues(t.Module).Inc()
	}
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors, for use instead of the global default registry.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
