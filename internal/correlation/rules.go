package correlation

import (
	"sort"
	"sync"
	"time"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

const (
	defaultMaxHopDistance = 3
)

// ruleRegistry holds the active correlation rules, replace-by-id.
type ruleRegistry struct {
	mu    sync.RWMutex
	rules map[string]models.CorrelationRule
}

func newRuleRegistry() *ruleRegistry {
	return &ruleRegistry{rules: make(map[string]models.CorrelationRule)}
}

// register validates, normalizes, and stores a rule. Invalid rules leave
// the registry untouched.
func (r *ruleRegistry) register(rule models.CorrelationRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.Type == models.CorrelationDependency {
		if rule.Conditions.MaxHopDistance <= 0 {
			rule.Conditions.MaxHopDistance = defaultMaxHopDistance
		}
		if rule.Conditions.MaxPropagationTime <= 0 {
			rule.Conditions.MaxPropagationTime = rule.TimeWindow
		}
	}
	r.mu.Lock()
	r.rules[rule.ID] = rule
	r.mu.Unlock()
	return nil
}

// snapshot returns the rules grouped by type, each group sorted by id, so
// passes iterate deterministically.
func (r *ruleRegistry) snapshot() map[models.CorrelationType][]models.CorrelationRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[models.CorrelationType][]models.CorrelationRule, 4)
	for _, rule := range r.rules {
		out[rule.Type] = append(out[rule.Type], rule)
	}
	for _, group := range out {
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
	}
	return out
}

func (r *ruleRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// outerWindow is the widest pair gap any registered rule can still score.
func outerWindow(rulesByType map[models.CorrelationType][]models.CorrelationRule) time.Duration {
	var max time.Duration
	for _, group := range rulesByType {
		for i := range group {
			if w := group[i].EffectiveWindow(); w > max {
				max = w
			}
		}
	}
	return max
}

// largestTimeWindow is the widest raw rule window; cluster member spread
// never exceeds twice this value.
func largestTimeWindow(rulesByType map[models.CorrelationType][]models.CorrelationRule) time.Duration {
	var max time.Duration
	for _, group := range rulesByType {
		for i := range group {
			if group[i].TimeWindow > max {
				max = group[i].TimeWindow
			}
		}
	}
	return max
}

// DefaultRules returns the stock rule set registered by the binary: a
// dependency cascade rule, a temporal burst rule, a same-origin spatial
// rule, and a textual similarity rule.
func DefaultRules() []models.CorrelationRule {
	return []models.CorrelationRule{
		{
			ID:                  "service-cascade",
			Name:                "Service cascade failure",
			Type:                models.CorrelationDependency,
			TimeWindow:          10 * time.Minute,
			ConfidenceThreshold: 0.5,
			Conditions: models.RuleConditions{
				MaxPropagationTime: 5 * time.Minute,
				MaxHopDistance:     3,
			},
		},
		{
			ID:                  "alert-burst",
			Name:                "Burst of alerts",
			Type:                models.CorrelationTemporal,
			TimeWindow:          5 * time.Minute,
			ConfidenceThreshold: 0.8,
		},
		{
			ID:                  "same-origin",
			Name:                "Same service or host",
			Type:                models.CorrelationSpatial,
			TimeWindow:          10 * time.Minute,
			ConfidenceThreshold: 0.75,
		},
		{
			ID:                  "similar-text",
			Name:                "Similar alert text",
			Type:                models.CorrelationSimilarity,
			TimeWindow:          15 * time.Minute,
			ConfidenceThreshold: 0.7,
		},
	}
}
