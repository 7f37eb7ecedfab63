// Package metrics exports organisation counters and timings for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stratadelivery"

// Recorder holds the organise metrics on its own registry.
type Recorder struct {
	reg      *prometheus.Registry
	organise *prometheus.CounterVec
	duration *prometheus.HistogramVec
	archived prometheus.Counter
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		reg: reg,
		organise: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "organise_requests_total",
			Help:      "Organise requests by outcome (completed or error class).",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "organise_duration_seconds",
			Help:      "Time spent organising a runfolder.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_manifests_total",
			Help:      "Manifests uploaded to the archive store.",
		}),
	}
	reg.MustRegister(
		r.organise,
		r.duration,
		r.archived,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOrganise records one organise request.
func (r *Recorder) ObserveOrganise(outcome string, d time.Duration) {
	r.organise.WithLabelValues(outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// AddArchived counts uploaded manifests.
func (r *Recorder) AddArchived(n int) {
	if n > 0 {
		r.archived.Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
