package correlation

import (
	"sort"
	"time"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

// predict forecasts how likely the service is to alert again within the
// horizon: of everything its recently-active signatures have ever produced,
// what fraction ended up in a correlated cluster at most `horizon` after
// occurring. A service with no recent signatures gets a zero prediction.
func (p *patternLibrary) predict(service string, horizon time.Duration, at time.Time) models.PredictionResult {
	result := models.PredictionResult{
		Service:        service,
		HorizonSeconds: int64(horizon / time.Second),
		GeneratedAt:    at,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked(at)

	var totalOccurrences, totalFollowed int
	patterns := make([]models.ContributingPattern, 0, 4)
	for key := range p.counts {
		if key.Service != service {
			continue
		}
		stat := p.stats[key]
		if stat == nil || stat.occurrences == 0 {
			continue
		}
		followed := 0
		for _, delay := range stat.hitDelays {
			if delay <= horizon {
				followed++
			}
		}
		totalOccurrences += stat.occurrences
		totalFollowed += followed
		patterns = append(patterns, models.ContributingPattern{
			Service:       key.Service,
			Host:          key.Host,
			TitleTemplate: key.Title,
			Occurrences:   stat.occurrences,
			ClusterFollow: followed,
			Ratio:         float64(followed) / float64(stat.occurrences),
		})
	}
	if totalOccurrences == 0 {
		return result
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Ratio != patterns[j].Ratio {
			return patterns[i].Ratio > patterns[j].Ratio
		}
		if patterns[i].Host != patterns[j].Host {
			return patterns[i].Host < patterns[j].Host
		}
		return patterns[i].TitleTemplate < patterns[j].TitleTemplate
	})
	result.PredictionScore = float64(totalFollowed) / float64(totalOccurrences)
	result.ContributingPatterns = patterns
	return result
}

// topPatterns lists the n busiest in-horizon signatures across all
// services, with their historical cluster-follow ratios.
func (p *patternLibrary) topPatterns(n int, at time.Time) []models.ContributingPattern {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked(at)

	out := make([]models.ContributingPattern, 0, len(p.counts))
	for key, count := range p.counts {
		stat := p.stats[key]
		if stat == nil || stat.occurrences == 0 {
			continue
		}
		out = append(out, models.ContributingPattern{
			Service:       key.Service,
			Host:          key.Host,
			TitleTemplate: key.Title,
			Occurrences:   count,
			ClusterFollow: len(stat.hitDelays),
			Ratio:         float64(len(stat.hitDelays)) / float64(stat.occurrences),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		if out[i].Service != out[j].Service {
			return out[i].Service < out[j].Service
		}
		if out[i].Host != out[j].Host {
			return out[i].Host < out[j].Host
		}
		return out[i].TitleTemplate < out[j].TitleTemplate
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
