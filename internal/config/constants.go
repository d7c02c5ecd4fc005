package config

const (
	// Service information
	ServiceName    = "mirador-alert-engine"
	ServiceVersion = "v1.0.0"

	// Shutdown grace period (seconds)
	DefaultShutdownTimeout = 30
)
