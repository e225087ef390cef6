// Package metrics exposes Prometheus instrumentation for the content admin
// service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentora_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentora_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Detection
	DetectionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentora_dedup_detection_runs_total",
			Help: "Total number of duplicate detection runs",
		},
		[]string{"result"}, // "ok", "cached", "error"
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mentora_dedup_detection_duration_seconds",
			Help:    "Duration of uncached duplicate detection runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	DetectionCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mentora_dedup_detection_candidates",
			Help:    "Number of candidate questions compared per detection run",
			Buckets: []float64{10, 50, 100, 500, 1000, 2500, 5000, 10000},
		},
	)

	GroupsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentora_dedup_groups_found_total",
			Help: "Total number of duplicate groups reported",
		},
	)

	// Deletion
	QuestionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentora_dedup_questions_deleted_total",
			Help: "Total number of duplicate questions deleted",
		},
	)

	DeletionRefused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentora_dedup_deletions_refused_total",
			Help: "Total number of group deletions refused by verification",
		},
	)

	// Report cache
	ReportCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentora_dedup_report_cache_hits_total",
			Help: "Total number of detection report cache hits",
		},
	)

	ReportCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentora_dedup_report_cache_misses_total",
			Help: "Total number of detection report cache misses",
		},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mentora_websocket_connections",
			Help: "Current number of open detection progress streams",
		},
	)
)

// RecordAPIRequest records the outcome of one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDetection records an uncached detection run.
func RecordDetection(candidates, groups int, duration time.Duration, err error) {
	if err != nil {
		DetectionRuns.WithLabelValues("error").Inc()
		return
	}
	DetectionRuns.WithLabelValues("ok").Inc()
	DetectionDuration.Observe(duration.Seconds())
	DetectionCandidates.Observe(float64(candidates))
	GroupsFound.Add(float64(groups))
}

// RecordCachedDetection records a detection answered from the report cache.
func RecordCachedDetection() {
	DetectionRuns.WithLabelValues("cached").Inc()
	ReportCacheHits.Inc()
}
