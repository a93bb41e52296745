// Package metrics exposes Prometheus collectors for the parser service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	parserEntriesTotal       *prometheus.CounterVec
	parserStageFailuresTotal *prometheus.CounterVec
	parserUploadsTotal       *prometheus.CounterVec
	parserActiveWorkers      prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		parserEntriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parser_entries_total",
				Help: "Total number of queue entries processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		parserStageFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parser_stage_failures_total",
				Help: "Total number of recoverable stage failures, labeled by stage.",
			},
			[]string{"stage"},
		)

		parserUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parser_uploads_total",
				Help: "Total number of artifacts written to the object store, labeled by kind.",
			},
			[]string{"kind"},
		)

		parserActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "parser_active_workers",
				Help: "Number of workers currently processing an entry.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEntry increments the entry counter for the given outcome.
func ObserveEntry(outcome string) {
	if parserEntriesTotal != nil {
		parserEntriesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveStageFailure increments the failure counter for a stage.
func ObserveStageFailure(stage string) {
	if parserStageFailuresTotal != nil {
		parserStageFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// ObserveUpload increments the upload counter for an artifact kind.
func ObserveUpload(kind string) {
	if parserUploadsTotal != nil {
		parserUploadsTotal.WithLabelValues(kind).Inc()
	}
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if parserActiveWorkers != nil {
		parserActiveWorkers.Inc()
	}
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if parserActiveWorkers != nil {
		parserActiveWorkers.Dec()
	}
}
