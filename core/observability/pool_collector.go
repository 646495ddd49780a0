package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/searchktools/pooled-server/core/pools"
)

// PoolStatsSource is anything that can report worker pool statistics
type PoolStatsSource interface {
	Stats() pools.WorkerPoolStats
}

// PoolCollector reads pool statistics at scrape time
type PoolCollector struct {
	src PoolStatsSource

	workers   *prometheus.Desc
	busy      *prometheus.Desc
	pending   *prometheus.Desc
	submitted *prometheus.Desc
	completed *prometheus.Desc
	panicked  *prometheus.Desc
	perWorker *prometheus.Desc
}

// NewPoolCollector creates a collector for src
func NewPoolCollector(src PoolStatsSource) *PoolCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, labels, nil)
	}

	return &PoolCollector{
		src:       src,
		workers:   desc("workers", "Number of workers in the pool."),
		busy:      desc("busy_workers", "Number of workers currently running a job."),
		pending:   desc("pending_jobs", "Number of jobs waiting in the dispatch queue."),
		submitted: desc("jobs_submitted_total", "Total number of jobs accepted by the pool."),
		completed: desc("jobs_completed_total", "Total number of jobs run to completion."),
		panicked:  desc("jobs_panicked_total", "Total number of jobs that panicked."),
		perWorker: desc("worker_jobs_completed_total", "Jobs completed per worker.", "worker"),
	}
}

// Describe implements prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workers
	ch <- c.busy
	ch <- c.pending
	ch <- c.submitted
	ch <- c.completed
	ch <- c.panicked
	ch <- c.perWorker
}

// Collect implements prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(s.NumWorkers))
	ch <- prometheus.MustNewConstMetric(c.busy, prometheus.GaugeValue, float64(s.BusyWorkers))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.TasksPending))
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(s.TasksSubmitted))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(s.TasksCompleted))
	ch <- prometheus.MustNewConstMetric(c.panicked, prometheus.CounterValue, float64(s.TasksPanicked))
	for i, n := range s.PerWorker {
		ch <- prometheus.MustNewConstMetric(c.perWorker, prometheus.CounterValue, float64(n), strconv.Itoa(i))
	}
}
