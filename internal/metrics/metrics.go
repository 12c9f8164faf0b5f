// Package metrics exposes Prometheus collectors for the API, the extraction
// worker and the application state.
package metrics

import (
	"context"
	"time"

	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taxtracker"

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts requests by route pattern, method and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by route, method and status.",
}, []string{"route", "method", "status"})

// HTTPDuration tracks request latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// ─── Extraction ─────────────────────────────────────────────────────────────

// Extractions counts applied extraction results by outcome.
var Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "extraction",
	Name:      "results_total",
	Help:      "Extraction results by outcome (failed, empty, staged, stale).",
}, []string{"outcome"})

// ExtractionDuration tracks how long the model call takes.
var ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "extraction",
	Name:      "duration_seconds",
	Help:      "Document extraction latency.",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
})

// ─── Jobs ───────────────────────────────────────────────────────────────────

// JobsProcessed counts finished jobs by final status.
var JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "jobs",
	Name:      "processed_total",
	Help:      "Jobs processed by final status.",
}, []string{"status"})

// JobQueueDepth is the number of queued jobs.
var JobQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "jobs",
	Name:      "queue_depth",
	Help:      "Jobs waiting in the queue.",
})

// ─── State ──────────────────────────────────────────────────────────────────

// StateEvents counts application state changes by kind.
var StateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "state",
	Name:      "events_total",
	Help:      "Application state changes by kind.",
}, []string{"kind"})

// TaxLiability is the latest computed liability per regime, in rupees.
var TaxLiability = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "tax",
	Name:      "liability_rupees",
	Help:      "Latest computed tax liability by regime.",
}, []string{"regime"})

// DeductionUtilization is the latest utilization percentage per section.
var DeductionUtilization = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "tax",
	Name:      "deduction_utilization_percent",
	Help:      "Latest deduction utilization by section.",
}, []string{"section"})

// Observe is an app.Observer that records every state change.
func Observe(_ context.Context, ev app.Event) {
	StateEvents.WithLabelValues(string(ev.Kind)).Inc()

	if ev.Kind == app.EventExtraction {
		Extractions.WithLabelValues(string(ev.Outcome)).Inc()
	}

	TaxLiability.WithLabelValues("old").Set(ev.Calculation.OldRegime.TaxLiability.InexactFloat64())
	TaxLiability.WithLabelValues("new").Set(ev.Calculation.NewRegime.TaxLiability.InexactFloat64())
	DeductionUtilization.WithLabelValues("80C").Set(ev.Utilization.Section80C.Utilization.InexactFloat64())
	DeductionUtilization.WithLabelValues("80D").Set(ev.Utilization.Section80D.Utilization.InexactFloat64())
	DeductionUtilization.WithLabelValues("HRA").Set(ev.Utilization.HRA.Utilization.InexactFloat64())
}

// ObserveJob is an inmemory.Options.Observe hook. Final statuses are
// counted; the queue depth is always refreshed.
func ObserveJob(job *jobs.ExtractDocumentJob, queued int) {
	if job.Done() {
		JobsProcessed.WithLabelValues(string(job.Status)).Inc()
	}
	JobQueueDepth.Set(float64(queued))
}

// ObserveExtraction records the duration of one extractor call.
func ObserveExtraction(start time.Time) {
	ExtractionDuration.Observe(time.Since(start).Seconds())
}
