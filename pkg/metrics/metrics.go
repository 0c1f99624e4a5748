// Package metrics holds the Prometheus collectors of the tracker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commissioning"

// Import outcomes used as the "outcome" label.
const (
	OutcomeStored     = "stored"
	OutcomeDryRun     = "dry_run"
	OutcomeRejected   = "rejected"
	OutcomePersistErr = "persist_error"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	imports        *prometheus.CounterVec
	importDuration prometheus.Histogram
	projects       prometheus.Counter
	duplicates     prometheus.Counter
	discardedRows  prometheus.Counter
	summaryRuns    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Workbook imports by outcome.",
		}, []string{"outcome"}),
		importDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Time spent parsing and storing a workbook.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		projects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_imported_total",
			Help:      "Project records produced by imports after deduplication.",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_collapsed_total",
			Help:      "Records dropped by deduplication.",
		}),
		discardedRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_rows_total",
			Help:      "Rows that could not be attributed to a project.",
		}),
		summaryRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_recomputes_total",
			Help:      "Stored summary recomputations by result.",
		}, []string{"result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveImport records one finished import.
func (m *Metrics) ObserveImport(outcome string, elapsed time.Duration, projects, duplicates, discarded int) {
	m.imports.WithLabelValues(outcome).Inc()
	m.importDuration.Observe(elapsed.Seconds())
	m.projects.Add(float64(projects))
	m.duplicates.Add(float64(duplicates))
	m.discardedRows.Add(float64(discarded))
}

func (m *Metrics) ObserveSummaryRun(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.summaryRuns.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry to tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
