package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/searchktools/pooled-server/core/http"
	"github.com/searchktools/pooled-server/core/pools"
)

const namespace = "pooled_server"

// Metrics holds the server's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	AcceptErrors        prometheus.Counter
	Responses           *prometheus.CounterVec
	ParseFailures       *prometheus.CounterVec
	IOErrors            *prometheus.CounterVec
	JobDuration         prometheus.Histogram
	JobPanics           prometheus.Counter
}

// NewMetrics creates the collectors and registers them together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConnectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted connections.",
		}),
		AcceptErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Total number of failed accept calls.",
		}),
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Total number of responses written, by status code.",
		}, []string{"code"}),
		ParseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Total number of requests answered with 500 because they could not be parsed.",
		}, []string{"reason"}),
		IOErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_errors_total",
			Help:      "Total number of connection read/write failures.",
		}, []string{"op"}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time a worker spent running one job.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		JobPanics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_panics_total",
			Help:      "Total number of jobs that panicked and were recovered.",
		}),
	}
}

// Registry returns the registry holding every collector
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterPool exports the statistics of a worker pool
func (m *Metrics) RegisterPool(src PoolStatsSource) error {
	return m.registry.Register(NewPoolCollector(src))
}

// JobStarted implements pools.Observer
func (m *Metrics) JobStarted(int) {}

// JobFinished implements pools.Observer
func (m *Metrics) JobFinished(_ int, d time.Duration) {
	m.JobDuration.Observe(d.Seconds())
}

// JobPanicked implements pools.Observer
func (m *Metrics) JobPanicked(int, any) {
	m.JobPanics.Inc()
}

var _ pools.Observer = (*Metrics)(nil)

// ParseFailureReason maps a parse error to its metric label
func ParseFailureReason(err error) string {
	switch {
	case errors.Is(err, http.ErrInvalidEncoding):
		return "encoding"
	case errors.Is(err, http.ErrMalformedRequestLine):
		return "malformed"
	case errors.Is(err, http.ErrEmptyRequest):
		return "empty"
	default:
		return "other"
	}
}
