package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

// rulesFile is the on-disk correlation rules document.
type rulesFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// ruleSpec mirrors models.CorrelationRule with string durations so operators
// write "10m" instead of nanosecond counts.
type ruleSpec struct {
	ID                  string             `yaml:"id"`
	Name                string             `yaml:"name"`
	Type                string             `yaml:"type"`
	TimeWindow          string             `yaml:"time_window"`
	ConfidenceThreshold float64            `yaml:"confidence_threshold"`
	Conditions          ruleConditionsSpec `yaml:"conditions"`
}

type ruleConditionsSpec struct {
	MaxPropagationTime string   `yaml:"max_propagation_time"`
	MaxHopDistance     int      `yaml:"max_hop_distance"`
	SourceServices     []string `yaml:"source_services"`
}

// LoadRulesFile reads and parses a correlation rules YAML. Semantic
// validation is left to rule registration; this layer only rejects
// unparseable documents and durations.
func LoadRulesFile(path string) ([]models.CorrelationRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	rules := make([]models.CorrelationRule, 0, len(doc.Rules))
	for i, spec := range doc.Rules {
		rule, err := spec.toRule()
		if err != nil {
			return nil, fmt.Errorf("rules file %s, rule %d (%s): %w", path, i, spec.ID, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s ruleSpec) toRule() (models.CorrelationRule, error) {
	window, err := parseOptionalDuration(s.TimeWindow)
	if err != nil {
		return models.CorrelationRule{}, fmt.Errorf("time_window: %w", err)
	}
	propagation, err := parseOptionalDuration(s.Conditions.MaxPropagationTime)
	if err != nil {
		return models.CorrelationRule{}, fmt.Errorf("max_propagation_time: %w", err)
	}

	return models.CorrelationRule{
		ID:                  s.ID,
		Name:                s.Name,
		Type:                models.CorrelationType(s.Type),
		TimeWindow:          window,
		ConfidenceThreshold: s.ConfidenceThreshold,
		Conditions: models.RuleConditions{
			MaxPropagationTime: propagation,
			MaxHopDistance:     s.Conditions.MaxHopDistance,
			SourceServices:     s.Conditions.SourceServices,
		},
	}, nil
}

func parseOptionalDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
