package utils

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ScansStarted   *prometheus.CounterVec
	ScansFinished  *prometheus.CounterVec
	TasksFinished  *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	ScansInFlight  prometheus.Gauge
	QueueDepth     prometheus.Gauge
	MatcherQueries prometheus.Counter
}

func NewMetrics(enableRuntimeMetrics bool) *Metrics {
	reg := prometheus.NewRegistry()
	if enableRuntimeMetrics {
		_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		_ = reg.Register(collectors.NewGoCollector())
	}

	m := &Metrics{
		registry: reg,
		ScansStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codescope_scans_started_total",
			Help: "Scans accepted by the engine, per kind.",
		}, []string{"kind"}),
		ScansFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codescope_scans_finished_total",
			Help: "Scans that reached a terminal status, per kind and status.",
		}, []string{"kind", "status"}),
		TasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codescope_tasks_finished_total",
			Help: "Scan tasks that reached a terminal status, per status.",
		}, []string{"status"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codescope_task_duration_seconds",
			Help:    "Wall time per scan task, per scan kind.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
		ScansInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codescope_scans_in_flight",
			Help: "Scans currently in a non-terminal status.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codescope_task_queue_depth",
			Help: "Tasks waiting for a worker.",
		}),
		MatcherQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codescope_matcher_queries_total",
			Help: "Batch queries issued to the vulnerability source.",
		}),
	}

	reg.MustRegister(
		m.ScansStarted, m.ScansFinished, m.TasksFinished,
		m.TaskDuration, m.ScansInFlight, m.QueueDepth, m.MatcherQueries,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
