package correlation

import (
	"testing"
	"time"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

func temporalRule(id string, window time.Duration, threshold float64) models.CorrelationRule {
	return models.CorrelationRule{ID: id, Name: id, Type: models.CorrelationTemporal, TimeWindow: window, ConfidenceThreshold: threshold}
}

func dependencyRule(id string, propagation time.Duration, hops int, threshold float64) models.CorrelationRule {
	return models.CorrelationRule{
		ID: id, Name: id, Type: models.CorrelationDependency,
		TimeWindow: propagation, ConfidenceThreshold: threshold,
		Conditions: models.RuleConditions{MaxPropagationTime: propagation, MaxHopDistance: hops},
	}
}

func rulesByType(rules ...models.CorrelationRule) map[models.CorrelationType][]models.CorrelationRule {
	out := make(map[models.CorrelationType][]models.CorrelationRule)
	for _, r := range rules {
		out[r.Type] = append(out[r.Type], r)
	}
	return out
}

func TestScoreTemporal(t *testing.T) {
	rule := temporalRule("tw", 10*time.Minute, 0)
	a := storedAlert("a-1", "api", "api01", "one", storeEpoch)

	tests := []struct {
		name      string
		offset    time.Duration
		want      float64
		wantScore bool
	}{
		{"inside window", 4 * time.Minute, 1, true},
		{"at window edge", 10 * time.Minute, 1, true},
		{"decaying", 15 * time.Minute, 0.5, true},
		{"at decay edge", 20 * time.Minute, 0, true},
		{"beyond decay", 21 * time.Minute, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := storedAlert("a-2", "web", "web01", "two", storeEpoch.Add(tt.offset))
			got, ok := scoreTemporal(rule, a, b)
			if ok != tt.wantScore {
				t.Fatalf("ok = %v, want %v", ok, tt.wantScore)
			}
			if ok && got != tt.want {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreSpatial(t *testing.T) {
	rule := models.CorrelationRule{ID: "sp", Type: models.CorrelationSpatial, TimeWindow: 10 * time.Minute}
	a := storedAlert("a-1", "api", "api01", "one", storeEpoch)

	sameService := storedAlert("a-2", "api", "api02", "two", storeEpoch.Add(time.Minute))
	if got, ok := scoreSpatial(rule, a, sameService); !ok || got != spatialSameService {
		t.Errorf("same service = (%v, %v), want (%v, true)", got, ok, spatialSameService)
	}

	sameHost := storedAlert("a-3", "web", "api01", "three", storeEpoch.Add(time.Minute))
	if got, ok := scoreSpatial(rule, a, sameHost); !ok || got != spatialSameHost {
		t.Errorf("same host = (%v, %v), want (%v, true)", got, ok, spatialSameHost)
	}

	unrelated := storedAlert("a-4", "web", "web01", "four", storeEpoch.Add(time.Minute))
	if _, ok := scoreSpatial(rule, a, unrelated); ok {
		t.Error("expected no opinion for distinct service and host")
	}

	late := storedAlert("a-5", "api", "api01", "five", storeEpoch.Add(11*time.Minute))
	if _, ok := scoreSpatial(rule, a, late); ok {
		t.Error("expected no opinion outside the rule window")
	}
}

func TestScoreDependency(t *testing.T) {
	graph := NewServiceGraph(demoDeps())
	s := &pairScorer{graph: graph}
	rule := dependencyRule("dep", 5*time.Minute, 3, 0)

	db := storedAlert("a-1", "database", "db01", "down", storeEpoch)

	api := storedAlert("a-2", "api", "api01", "errors", storeEpoch.Add(time.Minute))
	if got, ok := s.scoreDependency(rule, db, api); !ok || got != 0.5 {
		t.Errorf("one hop = (%v, %v), want (0.5, true)", got, ok)
	}

	web := storedAlert("a-3", "web", "web01", "errors", storeEpoch.Add(2*time.Minute))
	if got, ok := s.scoreDependency(rule, db, web); !ok || got != 1.0/3 {
		t.Errorf("two hops = (%v, %v), want (%v, true)", got, ok, 1.0/3)
	}

	// Propagation is directional: an api alert before a database alert is
	// not explained by api's failure.
	if _, ok := s.scoreDependency(rule, api, storedAlert("a-4", "database", "db01", "down", storeEpoch.Add(3*time.Minute))); ok {
		t.Error("expected no opinion against the dependency direction")
	}

	lateWeb := storedAlert("a-5", "web", "web01", "errors", storeEpoch.Add(6*time.Minute))
	if _, ok := s.scoreDependency(rule, db, lateWeb); ok {
		t.Error("expected no opinion beyond max_propagation_time")
	}

	oneHop := dependencyRule("dep-short", 5*time.Minute, 1, 0)
	if _, ok := s.scoreDependency(oneHop, db, web); ok {
		t.Error("expected no opinion beyond max_hop_distance")
	}

	sameService := storedAlert("a-6", "database", "db02", "down", storeEpoch.Add(time.Minute))
	if _, ok := s.scoreDependency(rule, db, sameService); ok {
		t.Error("expected no opinion for alerts on the same service")
	}
}

func TestScoreDependency_SourceServiceRestriction(t *testing.T) {
	graph := NewServiceGraph(demoDeps())
	s := &pairScorer{graph: graph}
	rule := dependencyRule("dep", 5*time.Minute, 3, 0)
	rule.Conditions.SourceServices = []string{"cache"}

	db := storedAlert("a-1", "database", "db01", "down", storeEpoch)
	api := storedAlert("a-2", "api", "api01", "errors", storeEpoch.Add(time.Minute))
	if _, ok := s.scoreDependency(rule, db, api); ok {
		t.Error("expected no opinion when the earlier service is not a listed source")
	}

	rule.Conditions.SourceServices = []string{"cache", "database"}
	if got, ok := s.scoreDependency(rule, db, api); !ok || got != 0.5 {
		t.Errorf("listed source = (%v, %v), want (0.5, true)", got, ok)
	}
}

func TestPairScorer_TakesMaximumAcrossRules(t *testing.T) {
	graph := NewServiceGraph(demoDeps())
	s := &pairScorer{
		graph: graph,
		rules: rulesByType(
			temporalRule("tw", 10*time.Minute, 0.5),
			dependencyRule("dep", 10*time.Minute, 3, 0.3),
		),
	}

	db := storedAlert("a-1", "database", "db01", "down", storeEpoch)
	api := storedAlert("a-2", "api", "api01", "errors", storeEpoch.Add(time.Minute))

	best, ok := s.score(db, api)
	if !ok {
		t.Fatal("expected an edge")
	}
	if best.score != 1 || best.typ != models.CorrelationTemporal || best.ruleID != "tw" {
		t.Errorf("best = %+v, want temporal tw at 1.0", best)
	}

	// Outside twice the temporal window only the dependency rule is left.
	lateAPI := storedAlert("a-3", "api", "api01", "errors", storeEpoch.Add(9*time.Minute))
	s.rules = rulesByType(
		temporalRule("tw", 4*time.Minute, 0.5),
		dependencyRule("dep", 10*time.Minute, 3, 0.3),
	)
	best, ok = s.score(db, lateAPI)
	if !ok {
		t.Fatal("expected a dependency edge")
	}
	if best.typ != models.CorrelationDependency || best.score != 0.5 {
		t.Errorf("best = %+v, want dependency at 0.5", best)
	}
}

func TestPairScorer_EqualWeightsFavorEarlierType(t *testing.T) {
	// A temporal score decayed to exactly 0.9 ties the spatial same-service
	// weight; the temporal rule must win.
	s := &pairScorer{
		rules: rulesByType(
			temporalRule("tw", 10*time.Minute, 0.5),
			models.CorrelationRule{ID: "sp", Type: models.CorrelationSpatial, TimeWindow: 15 * time.Minute, ConfidenceThreshold: 0.5},
		),
	}
	a := storedAlert("a-1", "api", "api01", "one", storeEpoch)
	b := storedAlert("a-2", "api", "api02", "two", storeEpoch.Add(11*time.Minute))

	best, ok := s.score(a, b)
	if !ok {
		t.Fatal("expected an edge")
	}
	if best.score != 0.9 {
		t.Fatalf("score = %v, want 0.9", best.score)
	}
	if best.typ != models.CorrelationTemporal || best.ruleID != "tw" {
		t.Errorf("tie went to %+v, want temporal tw", best)
	}
}

func TestPairScorer_ThresholdFiltersEdges(t *testing.T) {
	s := &pairScorer{rules: rulesByType(temporalRule("tw", 10*time.Minute, 0.95))}
	a := storedAlert("a-1", "api", "api01", "one", storeEpoch)
	b := storedAlert("a-2", "web", "web01", "two", storeEpoch.Add(12*time.Minute))

	// Score decays to 0.8, below the 0.95 threshold.
	if _, ok := s.score(a, b); ok {
		t.Error("expected no edge below the rule threshold")
	}
}

func TestPairScorer_SimilarityUsesIndexedText(t *testing.T) {
	ix := newTestIndex(t)
	ix.add("a-1", "Database connection timeout on primary")
	ix.add("a-2", "Database connection timeout on replica")

	s := &pairScorer{
		text: ix,
		rules: rulesByType(models.CorrelationRule{
			ID: "sim", Type: models.CorrelationSimilarity,
			TimeWindow: 15 * time.Minute, ConfidenceThreshold: 0.5,
		}),
	}
	a := storedAlert("a-1", "api", "api01", "unused", storeEpoch)
	b := storedAlert("a-2", "web", "web01", "unused", storeEpoch.Add(time.Minute))

	best, ok := s.score(a, b)
	if !ok {
		t.Fatal("expected a similarity edge")
	}
	if best.typ != models.CorrelationSimilarity || best.ruleID != "sim" {
		t.Errorf("best = %+v, want similarity sim", best)
	}
	if best.score <= 0.5 || best.score > 1 {
		t.Errorf("score = %v, want in (0.5, 1]", best.score)
	}

	// Unindexed alerts produce no similarity opinion.
	c := storedAlert("a-9", "web", "web02", "unused", storeEpoch.Add(time.Minute))
	if _, ok := s.score(a, c); ok {
		t.Error("expected no edge for unindexed text")
	}
}
