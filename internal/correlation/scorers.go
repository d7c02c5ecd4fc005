package correlation

import (
	"time"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

const (
	spatialSameService = 0.9
	spatialSameHost    = 0.8
)

// scorerTypeOrder fixes the evaluation and tie-break order for edges of
// equal weight.
var scorerTypeOrder = []models.CorrelationType{
	models.CorrelationTemporal,
	models.CorrelationSpatial,
	models.CorrelationSimilarity,
	models.CorrelationDependency,
}

// pairScore is the strongest verdict the rule set grants one alert pair.
type pairScore struct {
	score  float64
	ruleID string
	typ    models.CorrelationType
}

// pairScorer evaluates every registered rule against ordered alert pairs.
// Callers pass the earlier alert (by timestamp, then id) first.
type pairScorer struct {
	rules map[models.CorrelationType][]models.CorrelationRule
	graph *ServiceGraph
	text  *documentIndex
}

// score returns the best edge any rule grants the pair, or ok=false when no
// rule reaches its own confidence threshold. Weight ties resolve by type
// precedence and then rule id, so reruns yield identical edges.
func (s *pairScorer) score(a, b *models.AlertRecord) (pairScore, bool) {
	var best pairScore
	found := false
	for _, typ := range scorerTypeOrder {
		for _, rule := range s.rules[typ] {
			value, ok := s.apply(rule, a, b)
			if !ok || value < rule.ConfidenceThreshold {
				continue
			}
			if !found || value > best.score {
				best = pairScore{score: value, ruleID: rule.ID, typ: typ}
				found = true
			}
		}
	}
	return best, found
}

func (s *pairScorer) apply(rule models.CorrelationRule, a, b *models.AlertRecord) (float64, bool) {
	switch rule.Type {
	case models.CorrelationTemporal:
		return scoreTemporal(rule, a, b)
	case models.CorrelationSpatial:
		return scoreSpatial(rule, a, b)
	case models.CorrelationSimilarity:
		return s.scoreSimilarity(rule, a, b)
	case models.CorrelationDependency:
		return s.scoreDependency(rule, a, b)
	}
	return 0, false
}

// scoreTemporal grants full confidence inside the rule window and decays
// linearly to zero at twice the window.
func scoreTemporal(rule models.CorrelationRule, a, b *models.AlertRecord) (float64, bool) {
	delta := gap(a, b)
	switch {
	case delta <= rule.TimeWindow:
		return 1, true
	case delta <= 2*rule.TimeWindow:
		return float64(2*rule.TimeWindow-delta) / float64(rule.TimeWindow), true
	}
	return 0, false
}

func scoreSpatial(rule models.CorrelationRule, a, b *models.AlertRecord) (float64, bool) {
	if gap(a, b) > rule.TimeWindow {
		return 0, false
	}
	switch {
	case a.Service == b.Service:
		return spatialSameService, true
	case a.Host == b.Host:
		return spatialSameHost, true
	}
	return 0, false
}

func (s *pairScorer) scoreSimilarity(rule models.CorrelationRule, a, b *models.AlertRecord) (float64, bool) {
	if gap(a, b) > rule.TimeWindow {
		return 0, false
	}
	if s.text == nil {
		return 0, false
	}
	return s.text.cosine(a.ID, b.ID)
}

// scoreDependency attributes the later alert to the earlier one when the
// dependency graph shows failure can propagate between their services within
// the rule's hop and time limits. Nearer services score higher: 1/(1+hops).
func (s *pairScorer) scoreDependency(rule models.CorrelationRule, a, b *models.AlertRecord) (float64, bool) {
	if s.graph == nil {
		return 0, false
	}
	if gap(a, b) > rule.Conditions.MaxPropagationTime {
		return 0, false
	}
	if len(rule.Conditions.SourceServices) > 0 {
		allowed := false
		for _, svc := range rule.Conditions.SourceServices {
			if svc == a.Service {
				allowed = true
				break
			}
		}
		if !allowed {
			return 0, false
		}
	}
	hops, ok := s.graph.PropagationDistance(a.Service, b.Service, rule.Conditions.MaxHopDistance)
	if !ok {
		return 0, false
	}
	return 1 / float64(1+hops), true
}

func gap(a, b *models.AlertRecord) time.Duration {
	d := b.Timestamp.Sub(a.Timestamp)
	if d < 0 {
		d = -d
	}
	return d
}
