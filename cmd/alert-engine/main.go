package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platformbuilds/mirador-alert-engine/internal/config"
	"github.com/platformbuilds/mirador-alert-engine/internal/correlation"
	"github.com/platformbuilds/mirador-alert-engine/internal/metrics"
	"github.com/platformbuilds/mirador-alert-engine/internal/models"
	"github.com/platformbuilds/mirador-alert-engine/internal/tracing"
	"github.com/platformbuilds/mirador-alert-engine/pkg/cache"
	"github.com/platformbuilds/mirador-alert-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.LoadSecrets(cfg); err != nil {
		log.Fatalf("Failed to load secrets: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting MIRADOR alert engine", "version", config.ServiceVersion)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	var engineOpts []correlation.Option

	// Initialize tracing (optional)
	if cfg.Tracing.Enabled {
		provider, err := tracing.NewTracerProvider(config.ServiceName, config.ServiceVersion, cfg.Tracing.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracing", "error", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("Tracer shutdown failed", "error", err)
			}
		}()
		engineOpts = append(engineOpts, correlation.WithTracer(provider.Tracer(config.ServiceName)))
		logger.Info("Tracing initialized", "endpoint", cfg.Tracing.Endpoint)
	}

	// Initialize Valkey caching with in-memory fallback
	var valkeyCache cache.Valkey
	if cfg.Cache.Enabled {
		valkeyCache = newValkeyCache(cfg.Cache, logger)
		engineOpts = append(engineOpts, correlation.WithCache(valkeyCache))
	}

	// Initialize the correlation engine
	engine := correlation.NewEngine(engineConfig(cfg), logger, engineOpts...)

	registerRules := func(rules []models.CorrelationRule) {
		for _, rule := range rules {
			if err := engine.RegisterCorrelationRule(rule); err != nil {
				logger.Error("Skipping invalid correlation rule", "rule_id", rule.ID, "error", err)
			}
		}
	}
	registerRules(correlation.DefaultRules())

	if len(cfg.Dependencies) > 0 {
		engine.SetServiceDependencies(cfg.Dependencies)
	}

	// Load the rules file and keep it hot-reloaded
	if cfg.RulesFile != "" {
		rules, err := config.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			logger.Fatal("Failed to load rules file", "path", cfg.RulesFile, "error", err)
		}
		registerRules(rules)

		watcher := config.NewRulesWatcher(cfg.RulesFile, logger)
		watcher.OnReload(registerRules)
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.Error("Rules watcher failed", "error", err)
			}
		}()
	}

	// Expose Prometheus metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if valkeyCache != nil {
			if err := valkeyCache.HealthCheck(r.Context()); err != nil {
				http.Error(w, fmt.Sprintf("cache unhealthy: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
	go func() {
		logger.Info("Metrics listener started", "addr", cfg.Metrics.Listen)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics listener failed", "error", err)
		}
	}()

	if cfg.Demo.Enabled {
		runDemo(ctx, engine, logger)
	}

	if cfg.Correlate.SweepInterval > 0 {
		go sweepLoop(ctx, engine, valkeyCache, cfg.Correlate.SweepInterval, logger)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(), config.DefaultShutdownTimeout*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics listener shutdown failed", "error", err)
	}

	logger.Info("MIRADOR alert engine shutdown complete")
}

func engineConfig(cfg *config.Config) correlation.Config {
	return correlation.Config{
		StoreCapacity:      cfg.Store.Capacity,
		DedupWindow:        cfg.Store.DedupWindow,
		NoiseEnabled:       cfg.Noise.Enabled,
		NoiseHorizon:       cfg.Noise.Horizon,
		FrequencyThreshold: cfg.Noise.FrequencyThreshold,
		MinOccurrences:     cfg.Noise.MinOccurrences,
		DefaultWindow:      cfg.Correlate.DefaultWindow,
		MinWindow:          cfg.Correlate.MinWindow,
		MaxWindow:          cfg.Correlate.MaxWindow,
		PredictionHorizon:  cfg.Prediction.DefaultHorizon,
		CacheTTL:           cfg.Cache.TTL,
	}
}

// newValkeyCache connects to Valkey, picking single-node or cluster mode by
// node count. Connection failure falls back to the in-process cache so the
// engine still runs, it just loses cross-replica sharing.
func newValkeyCache(cfg config.CacheConfig, log logger.Logger) cache.Valkey {
	var (
		valkeyCache cache.Valkey
		err         error
	)
	if len(cfg.Nodes) > 1 {
		valkeyCache, err = cache.NewValkeyCluster(cfg.Nodes, cfg.Password, cfg.TTL, log)
	} else {
		valkeyCache, err = cache.NewValkeySingle(cfg.Nodes[0], cfg.DB, cfg.Password, cfg.TTL, log)
	}
	if err != nil {
		log.Error("Valkey connection failed, using in-memory fallback", "error", err)
		return cache.NewNoopValkey(log)
	}
	log.Info("Valkey cache initialized", "nodes", len(cfg.Nodes))
	return valkeyCache
}

// sweepLoop periodically re-correlates the store so the published cluster
// set tracks alert arrivals without an external scheduler. When a shared
// cache is configured, a lock keeps replicas from sweeping concurrently.
func sweepLoop(ctx context.Context, engine *correlation.Engine, valkeyCache cache.Valkey, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runSweep(ctx, engine, valkeyCache, interval, log)
		}
	}
}

func runSweep(ctx context.Context, engine *correlation.Engine, valkeyCache cache.Valkey, interval time.Duration, log logger.Logger) {
	if valkeyCache != nil {
		acquired, err := valkeyCache.AcquireLock(ctx, "correlation-sweep", interval)
		if err != nil {
			metrics.CacheRequestsTotal.WithLabelValues("lock", "error").Inc()
			log.Warn("Sweep lock unavailable", "error", err)
			return
		}
		metrics.CacheRequestsTotal.WithLabelValues("lock", "ok").Inc()
		if !acquired {
			return // another replica holds the sweep
		}
		defer func() {
			if err := valkeyCache.ReleaseLock(ctx, "correlation-sweep"); err != nil {
				log.Warn("Sweep lock release failed", "error", err)
			}
		}()
	}

	clusters, err := engine.Correlate(ctx, correlation.CorrelateOptions{})
	if err != nil {
		log.Warn("Correlation sweep aborted", "error", err)
		return
	}
	log.Debug("Correlation sweep completed", "clusters", len(clusters))
}

// runDemo replays a synthetic incident against a small service topology so a
// fresh checkout produces correlated output without a live alert feed.
func runDemo(ctx context.Context, engine *correlation.Engine, log logger.Logger) {
	log.Info("Demo mode: replaying synthetic alert scenario")

	engine.SetServiceDependencies(map[string][]string{
		"web":  {"api", "auth"},
		"api":  {"database", "cache"},
		"auth": {"database"},
	})

	rng := rand.New(rand.NewSource(42))
	services := []string{"web", "api", "database"}
	titles := []string{"High CPU usage", "Memory leak detected", "Connection timeout"}
	severities := []models.Severity{models.SeverityInfo, models.SeverityWarning, models.SeverityCritical}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 20; i++ {
		alert := models.AlertRecord{
			ID:          uuid.NewString(),
			Timestamp:   base.Add(time.Duration(i*3) * time.Minute),
			Service:     services[rng.Intn(len(services))],
			Host:        fmt.Sprintf("host-%02d", rng.Intn(5)+1),
			Severity:    severities[rng.Intn(len(severities))],
			Status:      models.StatusFiring,
			Title:       titles[rng.Intn(len(titles))],
			Description: fmt.Sprintf("Synthetic alert %d", i+1),
		}
		if _, err := engine.Ingest(alert); err != nil {
			log.Error("Demo ingest failed", "error", err)
		}
	}

	clusters, err := engine.Correlate(ctx, correlation.CorrelateOptions{WindowSeconds: 7200})
	if err != nil {
		log.Error("Demo correlation failed", "error", err)
		return
	}
	log.Info("Demo correlation complete", "clusters", len(clusters))
	for i := range clusters {
		cl := &clusters[i]
		log.Info("Demo cluster",
			"cluster_id", cl.ID,
			"alerts", len(cl.Alerts),
			"type", string(cl.CorrelationType),
			"confidence", fmt.Sprintf("%.2f", cl.ConfidenceScore),
			"root_cause", cl.PrimaryRootCause(),
		)
	}

	m := engine.GetMetrics()
	log.Info("Demo metrics",
		"ingested", m.TotalAlertsIngested,
		"deduplicated", m.TotalDeduplicated,
		"noise_suppressed", m.TotalNoiseSuppressed,
		"clusters_created", m.TotalClustersCreated,
		"correlation_rate", fmt.Sprintf("%.1f", m.CorrelationRate),
	)
}
