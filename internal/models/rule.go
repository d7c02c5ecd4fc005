package models

import (
	"fmt"
	"time"
)

type CorrelationType string

const (
	CorrelationTemporal   CorrelationType = "temporal"
	CorrelationSpatial    CorrelationType = "spatial"
	CorrelationSimilarity CorrelationType = "similarity"
	CorrelationDependency CorrelationType = "dependency"
)

// Precedence orders correlation types for tie-breaking: lower wins.
func (t CorrelationType) Precedence() int {
	switch t {
	case CorrelationTemporal:
		return 0
	case CorrelationSpatial:
		return 1
	case CorrelationSimilarity:
		return 2
	case CorrelationDependency:
		return 3
	default:
		return 4
	}
}

func (t CorrelationType) Valid() bool {
	return t.Precedence() < 4
}

// RuleConditions carries the type-specific rule parameters. Only the
// dependency scorer reads them today; unknown fields are ignored by the
// other scorers.
type RuleConditions struct {
	// MaxPropagationTime bounds how long after an upstream alert a
	// downstream alert may still be attributed to it.
	MaxPropagationTime time.Duration `json:"max_propagation_time,omitempty"`
	// MaxHopDistance bounds the dependency-path length considered.
	MaxHopDistance int `json:"max_hop_distance,omitempty"`
	// SourceServices, when set, restricts which earlier-alert services the
	// rule applies to.
	SourceServices []string `json:"source_services,omitempty"`
}

// CorrelationRule parameterizes one scorer. Multiple rules of the same type
// may coexist; each contributes an independent edge score.
type CorrelationRule struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Type                CorrelationType `json:"correlation_type"`
	TimeWindow          time.Duration   `json:"time_window"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
	Conditions          RuleConditions  `json:"conditions,omitempty"`
}

// Validate enforces the registration boundary. Violations wrap
// ErrInvalidRule and leave the registry untouched.
func (r *CorrelationRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown correlation_type %q", ErrInvalidRule, r.Type)
	}
	if r.TimeWindow <= 0 {
		return fmt.Errorf("%w: non-positive time_window %s", ErrInvalidRule, r.TimeWindow)
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence_threshold %v outside [0,1]", ErrInvalidRule, r.ConfidenceThreshold)
	}
	return nil
}

// EffectiveWindow is the widest timestamp gap at which the rule can still
// produce an edge: temporal scoring decays out to twice its window, and a
// dependency rule may allow propagation slower than its window.
func (r *CorrelationRule) EffectiveWindow() time.Duration {
	switch r.Type {
	case CorrelationTemporal:
		return 2 * r.TimeWindow
	case CorrelationDependency:
		if r.Conditions.MaxPropagationTime > r.TimeWindow {
			return r.Conditions.MaxPropagationTime
		}
		return r.TimeWindow
	default:
		return r.TimeWindow
	}
}
