package config

import "time"

type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Noise      NoiseConfig      `mapstructure:"noise" yaml:"noise"`
	Correlate  CorrelateConfig  `mapstructure:"correlate" yaml:"correlate"`
	Prediction PredictionConfig `mapstructure:"prediction" yaml:"prediction"`

	// RulesFile points at an optional correlation rules YAML; when set the
	// binary loads it at startup and hot-reloads it on change.
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`

	// Dependencies is the service topology: service -> services it depends on.
	Dependencies map[string][]string `mapstructure:"dependencies" yaml:"dependencies"`

	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Demo    DemoConfig    `mapstructure:"demo" yaml:"demo"`
}

// StoreConfig bounds the in-memory alert store.
type StoreConfig struct {
	Capacity    int           `mapstructure:"capacity" yaml:"capacity"`
	DedupWindow time.Duration `mapstructure:"dedup_window" yaml:"dedup_window"`
}

// NoiseConfig tunes frequency-based noise suppression.
type NoiseConfig struct {
	Enabled            bool          `mapstructure:"enabled" yaml:"enabled"`
	Horizon            time.Duration `mapstructure:"horizon" yaml:"horizon"`
	FrequencyThreshold float64       `mapstructure:"frequency_threshold" yaml:"frequency_threshold"`
	MinOccurrences     int           `mapstructure:"min_occurrences" yaml:"min_occurrences"`
}

// CorrelateConfig bounds correlation pass windows and drives the periodic
// sweep loop; a zero sweep interval disables sweeping.
type CorrelateConfig struct {
	DefaultWindow time.Duration `mapstructure:"default_window" yaml:"default_window"`
	MinWindow     time.Duration `mapstructure:"min_window" yaml:"min_window"`
	MaxWindow     time.Duration `mapstructure:"max_window" yaml:"max_window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

type PredictionConfig struct {
	DefaultHorizon time.Duration `mapstructure:"default_horizon" yaml:"default_horizon"`
}

// CacheConfig handles Valkey cluster caching configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Nodes    []string      `mapstructure:"nodes" yaml:"nodes"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// DemoConfig toggles the bundled synthetic scenario replay.
type DemoConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}
