package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Environment variables
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mirador/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	// An explicit file path beats the search list; tests lean on this.
	if path := os.Getenv("MIRADOR_ALERT_CONFIG"); path != "" {
		v.SetConfigFile(path)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("MIRADOR_ALERT")

	setDefaults(v)

	// Read configuration file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets reasonable default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	// Store defaults
	v.SetDefault("store.capacity", 10000)
	v.SetDefault("store.dedup_window", "5m")

	// Noise suppression defaults
	v.SetDefault("noise.enabled", true)
	v.SetDefault("noise.horizon", "1h")
	v.SetDefault("noise.frequency_threshold", 0.1)
	v.SetDefault("noise.min_occurrences", 5)

	// Correlation pass defaults
	v.SetDefault("correlate.default_window", "15m")
	v.SetDefault("correlate.min_window", "60s")
	v.SetDefault("correlate.max_window", "24h")
	v.SetDefault("correlate.sweep_interval", "1m")

	// Prediction defaults
	v.SetDefault("prediction.default_horizon", "1h")

	// Cache defaults (Valkey)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.nodes", []string{})
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.db", 0)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")

	// Metrics endpoint defaults
	v.SetDefault("metrics.listen", ":9094")

	v.SetDefault("demo.enabled", false)
}

// overrideWithEnvVars explicitly handles environment variable overrides
func overrideWithEnvVars(v *viper.Viper) {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}

	// Valkey cache nodes
	if cacheNodes := os.Getenv("VALKEY_NODES"); cacheNodes != "" {
		nodes := strings.Split(cacheNodes, ",")
		for i, node := range nodes {
			nodes[i] = strings.TrimSpace(node)
		}
		v.Set("cache.nodes", nodes)
		v.Set("cache.enabled", true)
	}

	if cacheTTL := os.Getenv("CACHE_TTL"); cacheTTL != "" {
		if ttl, err := strconv.Atoi(cacheTTL); err == nil {
			v.Set("cache.ttl", fmt.Sprintf("%ds", ttl))
		}
	}

	if rulesFile := os.Getenv("RULES_FILE"); rulesFile != "" {
		v.Set("rules_file", rulesFile)
	}

	if otlpEndpoint := os.Getenv("OTLP_ENDPOINT"); otlpEndpoint != "" {
		v.Set("tracing.endpoint", otlpEndpoint)
		v.Set("tracing.enabled", true)
	}

	if listen := os.Getenv("METRICS_LISTEN"); listen != "" {
		v.Set("metrics.listen", listen)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	if config.Store.Capacity < 1 || config.Store.Capacity > 1_000_000 {
		return fmt.Errorf("store capacity out of range [1, 1000000]: %d", config.Store.Capacity)
	}
	if config.Store.DedupWindow <= 0 {
		return fmt.Errorf("store dedup window must be positive")
	}

	if config.Noise.FrequencyThreshold <= 0 || config.Noise.FrequencyThreshold > 1 {
		return fmt.Errorf("noise frequency threshold must be in (0, 1]: %g", config.Noise.FrequencyThreshold)
	}
	if config.Noise.Horizon <= 0 {
		return fmt.Errorf("noise horizon must be positive")
	}
	if config.Noise.MinOccurrences < 1 {
		return fmt.Errorf("noise min occurrences must be at least 1: %d", config.Noise.MinOccurrences)
	}

	if config.Correlate.MinWindow <= 0 || config.Correlate.DefaultWindow <= 0 || config.Correlate.MaxWindow <= 0 {
		return fmt.Errorf("correlation windows must be positive")
	}
	if config.Correlate.MinWindow > config.Correlate.DefaultWindow ||
		config.Correlate.DefaultWindow > config.Correlate.MaxWindow {
		return fmt.Errorf("correlation windows must satisfy min <= default <= max")
	}
	if config.Correlate.SweepInterval < 0 {
		return fmt.Errorf("sweep interval cannot be negative")
	}

	if config.Prediction.DefaultHorizon <= 0 {
		return fmt.Errorf("prediction horizon must be positive")
	}

	if config.Cache.Enabled {
		if len(config.Cache.Nodes) == 0 {
			return fmt.Errorf("at least one Valkey cache node is required when caching is enabled")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
	}

	if config.Tracing.Enabled {
		if err := validateHostPort(config.Tracing.Endpoint); err != nil {
			return fmt.Errorf("invalid tracing endpoint: %w", err)
		}
	}

	if err := validateHostPort(config.Metrics.Listen); err != nil {
		return fmt.Errorf("invalid metrics listen address: %w", err)
	}

	return nil
}

// validateHostPort checks a host:port address; the host may be empty for
// listen addresses.
func validateHostPort(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("expected host:port format: %w", err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port: %s", port)
	}
	if p < 1 || p > 65535 {
		return fmt.Errorf("port out of range: %d", p)
	}
	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
