// ================================
// internal/metrics/metrics.go - Self-monitoring for the alert engine
// ================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_alert_ingest_total",
			Help: "Total number of ingested alerts by outcome",
		},
		[]string{"result"}, // accepted/deduplicated/noise/invalid
	)

	// Correlation pass metrics
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_alert_correlation_passes_total",
			Help: "Total number of correlation passes by outcome",
		},
		[]string{"outcome"}, // published/empty/cancelled/rejected
	)

	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mirador_alert_correlation_pass_duration_seconds",
			Help:    "Correlation pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PublishedClusters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirador_alert_published_clusters",
			Help: "Clusters in the currently published set",
		},
	)

	ClustersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirador_alert_clusters_created_total",
			Help: "Distinct cluster ids published since start",
		},
	)

	// Store and pattern library
	StoreAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirador_alert_store_alerts",
			Help: "Alerts currently held by the store",
		},
	)

	PatternSignatures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirador_alert_pattern_signatures",
			Help: "Distinct alert signatures inside the noise horizon",
		},
	)

	PredictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirador_alert_predictions_total",
			Help: "Total number of prediction requests served",
		},
	)

	// Valkey cache metrics
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_alert_cache_requests_total",
			Help: "Total number of cache requests",
		},
		[]string{"operation", "result"}, // cache_clusters/lock, ok/error
	)

	// Rules file hot-reload metrics
	RulesReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_alert_rules_reloads_total",
			Help: "Total number of rules file reloads",
		},
		[]string{"status"}, // success, error
	)
)
