package models

import "time"

// MetricsSnapshot is the read-only counter view exposed to collaborators.
// CorrelationRate is a percentage: distinct clustered members over all
// non-noise ingested alerts.
type MetricsSnapshot struct {
	TotalAlertsIngested  uint64  `json:"total_alerts_ingested"`
	TotalDeduplicated    uint64  `json:"total_deduplicated"`
	TotalNoiseSuppressed uint64  `json:"total_noise_suppressed"`
	TotalClustersCreated uint64  `json:"total_clusters_created"`
	CorrelationRate      float64 `json:"correlation_rate"`
}

// ContributingPattern is one learned signature backing a prediction.
type ContributingPattern struct {
	Service       string  `json:"service"`
	Host          string  `json:"host"`
	TitleTemplate string  `json:"title_template"`
	Occurrences   int     `json:"occurrences"`
	ClusterFollow int     `json:"cluster_follow"` // occurrences later seen in a cluster
	Ratio         float64 `json:"ratio"`
}

// PredictionResult forecasts near-term alert likelihood for one service.
type PredictionResult struct {
	Service              string                `json:"service"`
	HorizonSeconds       int64                 `json:"horizon_seconds"`
	PredictionScore      float64               `json:"prediction_score"`
	ContributingPatterns []ContributingPattern `json:"contributing_patterns,omitempty"`
	GeneratedAt          time.Time             `json:"generated_at"`
}

// ClusterSummary is the condensed cluster view used by insights.
type ClusterSummary struct {
	ID              string          `json:"id"`
	Size            int             `json:"size"`
	CorrelationType CorrelationType `json:"correlation_type"`
	Confidence      float64         `json:"confidence_score"`
	RootCause       string          `json:"root_cause"`
	Services        []string        `json:"services"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EngineInsights aggregates the engine's current state for operators.
type EngineInsights struct {
	Metrics        MetricsSnapshot       `json:"metrics"`
	ActiveClusters int                   `json:"active_clusters"`
	TopPatterns    []ContributingPattern `json:"top_patterns,omitempty"`
	RecentClusters []ClusterSummary      `json:"recent_clusters,omitempty"`
}
