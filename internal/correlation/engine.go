package correlation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platformbuilds/mirador-alert-engine/internal/metrics"
	"github.com/platformbuilds/mirador-alert-engine/internal/models"
	"github.com/platformbuilds/mirador-alert-engine/pkg/cache"
	"github.com/platformbuilds/mirador-alert-engine/pkg/logger"
)

// Config carries the engine tunables. Zero numeric fields fall back to the
// DefaultConfig values; NoiseEnabled is taken as given.
type Config struct {
	StoreCapacity int
	DedupWindow   time.Duration

	NoiseEnabled       bool
	NoiseHorizon       time.Duration
	FrequencyThreshold float64
	MinOccurrences     int

	DefaultWindow time.Duration
	MinWindow     time.Duration
	MaxWindow     time.Duration

	PredictionHorizon time.Duration
	CacheTTL          time.Duration
}

func DefaultConfig() Config {
	return Config{
		StoreCapacity:      10000,
		DedupWindow:        5 * time.Minute,
		NoiseEnabled:       true,
		NoiseHorizon:       time.Hour,
		FrequencyThreshold: 0.1,
		MinOccurrences:     5,
		DefaultWindow:      15 * time.Minute,
		MinWindow:          time.Minute,
		MaxWindow:          24 * time.Hour,
		PredictionHorizon:  time.Hour,
		CacheTTL:           5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StoreCapacity <= 0 {
		c.StoreCapacity = d.StoreCapacity
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = d.DedupWindow
	}
	if c.NoiseHorizon <= 0 {
		c.NoiseHorizon = d.NoiseHorizon
	}
	if c.FrequencyThreshold <= 0 {
		c.FrequencyThreshold = d.FrequencyThreshold
	}
	if c.MinOccurrences <= 0 {
		c.MinOccurrences = d.MinOccurrences
	}
	if c.DefaultWindow <= 0 {
		c.DefaultWindow = d.DefaultWindow
	}
	if c.MinWindow <= 0 {
		c.MinWindow = d.MinWindow
	}
	if c.MaxWindow <= 0 {
		c.MaxWindow = d.MaxWindow
	}
	if c.PredictionHorizon <= 0 {
		c.PredictionHorizon = d.PredictionHorizon
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	return c
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithCache attaches a Valkey cache; published cluster sets are pushed to
// it best-effort so the query layer can read them without calling in.
func WithCache(c cache.Valkey) Option {
	return func(e *Engine) { e.cache = c }
}

// WithTracer records one span per correlation pass.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithClock overrides the time source. Tests replay scenarios with a fixed
// clock; production uses time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// CorrelateOptions scopes one correlation pass. WindowSeconds <= 0 selects
// the configured default window; Service, Host, and Type filter the
// returned clusters after clustering, where a cluster matches when any
// member matches every set field.
type CorrelateOptions struct {
	WindowSeconds int64
	Service       string
	Host          string
	Type          models.CorrelationType
}

// Engine correlates a stream of alerts into incident clusters. Ingestion is
// safe for concurrent callers; correlation passes snapshot the store, score
// without holding its write lock, and atomically replace the published
// cluster set on completion (most recent completed pass wins).
type Engine struct {
	cfg      Config
	log      logger.Logger
	store    *alertStore
	patterns *patternLibrary
	rules    *ruleRegistry
	analyzer analysis.Analyzer
	graph    atomic.Pointer[ServiceGraph]

	cache  cache.Valkey
	tracer trace.Tracer
	now    func() time.Time

	ingested   atomic.Uint64
	deduped    atomic.Uint64
	suppressed atomic.Uint64
	created    atomic.Uint64

	mu        sync.RWMutex
	published []models.AlertCluster
	seen      map[string]struct{} // cluster ids ever published
	credited  map[string]struct{} // alert ids already credited as pattern hits
}

func NewEngine(cfg Config, log logger.Logger, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		log:      log,
		store:    newAlertStore(cfg.StoreCapacity, cfg.DedupWindow),
		patterns: newPatternLibrary(cfg.NoiseHorizon, cfg.FrequencyThreshold, cfg.MinOccurrences, cfg.NoiseEnabled),
		rules:    newRuleRegistry(),
		now:      time.Now,
		seen:     make(map[string]struct{}),
		credited: make(map[string]struct{}),
	}
	e.graph.Store(NewServiceGraph(nil))

	analyzer, err := newTextAnalyzer()
	if err != nil {
		log.Error("text analyzer unavailable, similarity scoring disabled", "error", err)
	} else {
		e.analyzer = analyzer
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingest validates, fingerprints, and stores one alert. Firing alerts are
// checked against the pattern library first; a signature already loud
// enough is stored flagged as noise and kept out of clustering. The result
// is meaningful only when err is nil.
func (e *Engine) Ingest(alert models.AlertRecord) (models.IngestResult, error) {
	now := e.now()
	alert.ApplyDefaults(now)
	if err := alert.Validate(); err != nil {
		metrics.IngestTotal.WithLabelValues("invalid").Inc()
		return "", err
	}
	alert.Fingerprint = Fingerprint(alert.Service, alert.Host, alert.Title)

	if alert.Status == models.StatusFiring {
		if e.patterns.observe(patternKeyFor(&alert), now) {
			alert.Noise = true
		}
	}
	result := e.store.ingest(&alert)

	e.ingested.Add(1)
	switch result {
	case models.IngestDeduplicated:
		e.deduped.Add(1)
	case models.IngestNoise:
		e.suppressed.Add(1)
	}
	metrics.IngestTotal.WithLabelValues(string(result)).Inc()
	metrics.StoreAlerts.Set(float64(e.store.size()))
	metrics.PatternSignatures.Set(float64(e.patterns.signatureCount(now)))

	e.log.Debug("alert ingested",
		"alert_id", alert.ID, "service", alert.Service, "host", alert.Host, "result", string(result))
	return result, nil
}

// SetServiceDependencies replaces the dependency graph wholesale. Passes
// already in flight keep the graph they started with.
func (e *Engine) SetServiceDependencies(deps map[string][]string) {
	graph := NewServiceGraph(deps)
	e.graph.Store(graph)
	e.log.Info("service dependency graph replaced",
		"services", graph.Size(), "edges", graph.EdgeCount())
}

// RegisterCorrelationRule adds a rule or replaces the one sharing its id.
func (e *Engine) RegisterCorrelationRule(rule models.CorrelationRule) error {
	if err := e.rules.register(rule); err != nil {
		return err
	}
	e.log.Info("correlation rule registered",
		"rule_id", rule.ID, "type", string(rule.Type), "window", rule.TimeWindow.String())
	return nil
}

// Correlate runs one clustering pass over the alerts inside the window and
// publishes the completed cluster set. A window outside the configured
// bounds yields an empty result without an error and without publishing.
// Cancellation returns ErrCancelled and leaves the published set untouched.
func (e *Engine) Correlate(ctx context.Context, opts CorrelateOptions) ([]models.AlertCluster, error) {
	window, ok := e.resolveWindow(opts.WindowSeconds)
	if !ok {
		metrics.PassesTotal.WithLabelValues("rejected").Inc()
		e.log.Warn("correlation window out of bounds",
			"window_seconds", opts.WindowSeconds,
			"min", e.cfg.MinWindow.String(), "max", e.cfg.MaxWindow.String())
		return nil, nil
	}

	runID := uuid.NewString()
	start := e.now()
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "correlation.pass", trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int64("window_seconds", int64(window/time.Second)),
		))
		defer span.End()
	}

	snapshot := e.snapshotForPass(start, window)
	pass := &correlator{rules: e.rules.snapshot(), graph: e.graph.Load(), analyzer: e.analyzer}
	clusters, err := pass.run(ctx, snapshot, start)
	metrics.PassDuration.Observe(e.now().Sub(start).Seconds())
	if err != nil {
		metrics.PassesTotal.WithLabelValues("cancelled").Inc()
		e.log.Warn("correlation pass aborted", "run_id", runID, "error", err)
		return nil, err
	}

	e.publish(clusters, start)
	outcome := "published"
	if len(clusters) == 0 {
		outcome = "empty"
	}
	metrics.PassesTotal.WithLabelValues(outcome).Inc()
	e.log.Info("correlation pass completed",
		"run_id", runID, "window", window.String(),
		"alerts", len(snapshot), "clusters", len(clusters))

	e.cacheClusters(ctx, window, clusters)
	return filterClusters(clusters, opts), nil
}

// GetMetrics returns the running counters. The correlation rate is the
// share of non-noise alerts that belong to a currently published cluster.
func (e *Engine) GetMetrics() models.MetricsSnapshot {
	ingested := e.ingested.Load()
	suppressed := e.suppressed.Load()
	snap := models.MetricsSnapshot{
		TotalAlertsIngested:  ingested,
		TotalDeduplicated:    e.deduped.Load(),
		TotalNoiseSuppressed: suppressed,
		TotalClustersCreated: e.created.Load(),
	}

	e.mu.RLock()
	members := make(map[string]struct{})
	for i := range e.published {
		for j := range e.published[i].Alerts {
			members[e.published[i].Alerts[j].ID] = struct{}{}
		}
	}
	e.mu.RUnlock()

	if denom := ingested - suppressed; denom > 0 {
		snap.CorrelationRate = 100 * float64(len(members)) / float64(denom)
	}
	return snap
}

// PredictAlerts forecasts alert likelihood for a service over the horizon.
// A non-positive horizon falls back to the configured default. Never fails;
// a service without history gets a zero prediction.
func (e *Engine) PredictAlerts(service string, horizonSeconds int64) models.PredictionResult {
	horizon := time.Duration(horizonSeconds) * time.Second
	if horizon <= 0 {
		horizon = e.cfg.PredictionHorizon
	}
	metrics.PredictionsTotal.Inc()
	return e.patterns.predict(service, horizon, e.now())
}

// ActiveClusters returns the published set revalidated against the store:
// evicted members are dropped, clusters falling below two members are
// discarded, and a shrunk cluster's root-cause candidates and impact are
// recomputed against the surviving members.
func (e *Engine) ActiveClusters() []models.AlertCluster {
	e.mu.RLock()
	published := e.published
	e.mu.RUnlock()

	graph := e.graph.Load()
	out := make([]models.AlertCluster, 0, len(published))
	for i := range published {
		if cl, ok := e.revalidate(&published[i], graph); ok {
			out = append(out, cl)
		}
	}
	return out
}

// ClusterByID finds one active cluster by id.
func (e *Engine) ClusterByID(id string) (models.AlertCluster, bool) {
	for _, cl := range e.ActiveClusters() {
		if cl.ID == id {
			return cl, true
		}
	}
	return models.AlertCluster{}, false
}

// Alerts returns the stored alerts inside the window, optionally filtered
// by service and host. A non-positive window selects the default.
func (e *Engine) Alerts(window time.Duration, service, host string) []models.AlertRecord {
	if window <= 0 {
		window = e.cfg.DefaultWindow
	}
	return e.store.query(e.now().Add(-window), service, host)
}

// Insights aggregates counters, the busiest signatures, and summaries of
// the active clusters into one operator view.
func (e *Engine) Insights() models.EngineInsights {
	active := e.ActiveClusters()
	insights := models.EngineInsights{
		Metrics:        e.GetMetrics(),
		ActiveClusters: len(active),
		TopPatterns:    e.patterns.topPatterns(5, e.now()),
	}
	for i := range active {
		cl := &active[i]
		services := make([]string, 0, len(cl.Alerts))
		seen := make(map[string]struct{}, len(cl.Alerts))
		for j := range cl.Alerts {
			if _, ok := seen[cl.Alerts[j].Service]; ok {
				continue
			}
			seen[cl.Alerts[j].Service] = struct{}{}
			services = append(services, cl.Alerts[j].Service)
		}
		sort.Strings(services)
		insights.RecentClusters = append(insights.RecentClusters, models.ClusterSummary{
			ID:              cl.ID,
			Size:            len(cl.Alerts),
			CorrelationType: cl.CorrelationType,
			Confidence:      cl.ConfidenceScore,
			RootCause:       cl.PrimaryRootCause(),
			Services:        services,
			CreatedAt:       cl.CreatedAt,
		})
	}
	return insights
}

func (e *Engine) resolveWindow(seconds int64) (time.Duration, bool) {
	if seconds <= 0 {
		return e.cfg.DefaultWindow, true
	}
	w := time.Duration(seconds) * time.Second
	if w < e.cfg.MinWindow || w > e.cfg.MaxWindow {
		return 0, false
	}
	return w, true
}

// snapshotForPass copies the in-window, still-correlatable alerts: firing
// only, and noise-flagged alerts whose signature has decayed below the
// threshold flow back in.
func (e *Engine) snapshotForPass(now time.Time, window time.Duration) []models.AlertRecord {
	all := e.store.query(now.Add(-window), "", "")
	in := make([]models.AlertRecord, 0, len(all))
	for i := range all {
		a := &all[i]
		if a.Status != models.StatusFiring {
			continue
		}
		if a.Noise && e.patterns.isNoisy(patternKeyFor(a), now) {
			continue
		}
		in = append(in, *a)
	}
	return in
}

// publish atomically replaces the published cluster set and credits the
// pattern library for members appearing in a cluster for the first time.
func (e *Engine) publish(clusters []models.AlertCluster, at time.Time) {
	type hit struct {
		key patternKey
		ts  time.Time
	}
	var hits []hit
	newIDs := 0

	e.mu.Lock()
	e.published = clusters
	for i := range clusters {
		if _, ok := e.seen[clusters[i].ID]; !ok {
			e.seen[clusters[i].ID] = struct{}{}
			newIDs++
		}
		for j := range clusters[i].Alerts {
			a := &clusters[i].Alerts[j]
			if _, ok := e.credited[a.ID]; ok {
				continue
			}
			e.credited[a.ID] = struct{}{}
			hits = append(hits, hit{key: patternKeyFor(a), ts: a.Timestamp})
		}
	}
	e.mu.Unlock()

	for _, h := range hits {
		e.patterns.recordClusterHit(h.key, h.ts, at)
	}
	if newIDs > 0 {
		e.created.Add(uint64(newIDs))
		metrics.ClustersCreatedTotal.Add(float64(newIDs))
	}
	metrics.PublishedClusters.Set(float64(len(clusters)))
}

func (e *Engine) revalidate(cl *models.AlertCluster, graph *ServiceGraph) (models.AlertCluster, bool) {
	survivors := make([]models.AlertRecord, 0, len(cl.Alerts))
	for i := range cl.Alerts {
		if e.store.has(cl.Alerts[i].ID) {
			survivors = append(survivors, copyRecord(&cl.Alerts[i]))
		}
	}
	if len(survivors) < 2 {
		return models.AlertCluster{}, false
	}
	out := *cl
	out.Alerts = survivors
	if len(survivors) < len(cl.Alerts) {
		candidates := rankRootCauses(survivors, graph)
		primary := ""
		if len(candidates) > 0 {
			primary = candidates[0]
		}
		out.RootCauseCandidates = candidates
		out.Impact = assessImpact(survivors, graph, primary)
	}
	return out, true
}

func (e *Engine) cacheClusters(ctx context.Context, window time.Duration, clusters []models.AlertCluster) {
	if e.cache == nil {
		return
	}
	scope := fmt.Sprintf("window=%s", window)
	if err := e.cache.CacheClusterSet(ctx, scope, clusters, e.cfg.CacheTTL); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("cache_clusters", "error").Inc()
		e.log.Warn("cluster set cache write failed", "scope", scope, "error", err)
		return
	}
	metrics.CacheRequestsTotal.WithLabelValues("cache_clusters", "ok").Inc()
}

// filterClusters applies the post-clustering filters.
func filterClusters(clusters []models.AlertCluster, opts CorrelateOptions) []models.AlertCluster {
	if opts.Service == "" && opts.Host == "" && opts.Type == "" {
		return clusters
	}
	out := make([]models.AlertCluster, 0, len(clusters))
	for i := range clusters {
		cl := &clusters[i]
		if opts.Type != "" && cl.CorrelationType != opts.Type {
			continue
		}
		if !anyMemberMatches(cl, opts.Service, opts.Host) {
			continue
		}
		out = append(out, *cl)
	}
	return out
}

func anyMemberMatches(cl *models.AlertCluster, service, host string) bool {
	if service == "" && host == "" {
		return true
	}
	for i := range cl.Alerts {
		a := &cl.Alerts[i]
		if service != "" && a.Service != service {
			continue
		}
		if host != "" && a.Host != host {
			continue
		}
		return true
	}
	return false
}
