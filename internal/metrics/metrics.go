// Package metrics declares loglite's Prometheus instrumentation: the
// counters, gauges, and histograms its components update, as
// package-level promauto vars.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loglite_events_ingested_total",
		Help: "Total number of events submitted to the Event Writer, before admission.",
	}, []string{"app_id", "source"})

	EventsAcceptedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loglite_events_accepted_total",
		Help: "Total number of events admitted into both the relational store and the index.",
	}, []string{"app_id", "source"})

	EventsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loglite_events_rejected_total",
		Help: "Total number of events that failed admission to either store.",
	}, []string{"app_id", "source"})

	ParseDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loglite_parse_dropped_total",
		Help: "Total number of continuation lines dropped because they preceded any record-start.",
	}, []string{"app_id", "source"})

	TailerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loglite_tailer_errors_total",
		Help: "Total number of I/O errors encountered while scanning tail sources.",
	}, []string{"source_id"})

	TailerLagBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loglite_tailer_lag_bytes",
		Help: "Difference between a file's current size and its committed offset, observed at the last scan.",
	}, []string{"source_id", "file_path"})

	RetentionDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglite_retention_deleted_total",
		Help: "Total number of events removed by the retention collector.",
	})

	IndexDocCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loglite_index_doc_count",
		Help: "Live document count reported by the search index.",
	})

	SearchRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loglite_search_request_duration_seconds",
		Help:    "Latency of /api/search requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"app_id"})
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
