// Package metrics exposes Prometheus instrumentation for adjustment runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	reg *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	recordsTotal *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRunTS    *prometheus.GaugeVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeshift",
		Name:      "runs_total",
		Help:      "Number of date adjustment runs by result",
	}, []string{"result"})
	m.recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeshift",
		Name:      "records_total",
		Help:      "Records processed by status",
	}, []string{"status"})
	m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timeshift",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full adjustment run",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	})
	m.lastRunTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "timeshift",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last finished run by result",
	}, []string{"result"})

	m.reg.MustRegister(
		m.runsTotal, m.recordsTotal, m.runDuration, m.lastRunTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(success bool, updated, skipped, failed int, took time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.recordsTotal.WithLabelValues("updated").Add(float64(updated))
	m.recordsTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.recordsTotal.WithLabelValues("failed").Add(float64(failed))
	m.runDuration.Observe(took.Seconds())
	m.lastRunTS.WithLabelValues(result).SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
