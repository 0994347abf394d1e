// Package metrics holds the prometheus collectors minutes exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minutes_api_request_duration_seconds",
		Help:    "Remote API latency by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30, 60, 120, 300},
	}, []string{"endpoint"})

	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minutes_api_errors_total",
		Help: "Remote API failures by endpoint",
	}, []string{"endpoint"})

	CaptureSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minutes_capture_sessions_total",
		Help: "Local capture sessions by outcome",
	}, []string{"outcome"})

	ProcessedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minutes_processed_files_total",
		Help: "Upload and process flows by outcome",
	}, []string{"outcome"})

	WatchInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minutes_watch_in_flight",
		Help: "Inbox files currently being processed",
	})
)
