package correlation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2/analysis"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

// cancelCheckInterval is how many pair evaluations run between context
// checks. Scoring is cheap; checking every pair is not worth it.
const cancelCheckInterval = 256

// clusterEdge is one accepted pairwise correlation.
type clusterEdge struct {
	a, b   string
	weight float64
	typ    models.CorrelationType
	ruleID string
}

// correlator executes one clustering pass over an immutable alert snapshot.
// Rules and graph are the pass's own copies; swapping either on the engine
// never affects a pass already in flight.
type correlator struct {
	rules    map[models.CorrelationType][]models.CorrelationRule
	graph    *ServiceGraph
	analyzer analysis.Analyzer
}

// run scores every alert pair inside the shared outer window, groups the
// accepted edges into connected components, and annotates each component of
// two or more alerts with confidence, root-cause candidates, and impact.
// Cancellation aborts the pass with ErrCancelled and no result.
func (c *correlator) run(ctx context.Context, alerts []models.AlertRecord, createdAt time.Time) ([]models.AlertCluster, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if len(alerts) < 2 {
		return nil, nil
	}
	outer := outerWindow(c.rules)
	if outer <= 0 {
		return nil, nil
	}
	sortAlertsByTime(alerts)

	scorer := &pairScorer{rules: c.rules, graph: c.graph, text: c.indexText(alerts)}

	uf := newUnionFind()
	var edges []clusterEdge
	checked := 0
	for i := 0; i < len(alerts); i++ {
		for j := i + 1; j < len(alerts); j++ {
			if alerts[j].Timestamp.Sub(alerts[i].Timestamp) > outer {
				break // sorted, every later j is further away
			}
			checked++
			if checked%cancelCheckInterval == 0 {
				if err := checkCancelled(ctx); err != nil {
					return nil, err
				}
			}
			best, ok := scorer.score(&alerts[i], &alerts[j])
			if !ok {
				continue
			}
			uf.union(alerts[i].ID, alerts[j].ID)
			edges = append(edges, clusterEdge{
				a: alerts[i].ID, b: alerts[j].ID,
				weight: best.score, typ: best.typ, ruleID: best.ruleID,
			})
		}
	}
	if len(edges) == 0 {
		return nil, nil
	}

	byID := make(map[string]*models.AlertRecord, len(alerts))
	for i := range alerts {
		byID[alerts[i].ID] = &alerts[i]
	}
	edgesByRoot := make(map[string][]clusterEdge)
	for _, e := range edges {
		root := uf.find(e.a)
		edgesByRoot[root] = append(edgesByRoot[root], e)
	}

	groups := uf.groups()
	clusters := make([]models.AlertCluster, 0, len(groups))
	for root, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		members := make([]models.AlertRecord, 0, len(ids))
		for _, id := range ids {
			members = append(members, copyRecord(byID[id]))
		}
		sortAlertsByTime(members)

		groupEdges := edgesByRoot[root]
		confidence, dominant := summarizeEdges(groupEdges)
		candidates := rankRootCauses(members, c.graph)
		primary := ""
		if len(candidates) > 0 {
			primary = candidates[0]
		}

		clusters = append(clusters, models.AlertCluster{
			ID:                  clusterID(members),
			Alerts:              members,
			CorrelationType:     dominant,
			ConfidenceScore:     confidence,
			RootCauseCandidates: candidates,
			Impact:              assessImpact(members, c.graph, primary),
			CreatedAt:           createdAt,
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		a, b := &clusters[i].Alerts[0], &clusters[j].Alerts[0]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return clusters[i].ID < clusters[j].ID
	})
	return clusters, nil
}

// indexText builds the pass-local TF-IDF corpus. Skipped entirely when no
// similarity rule is registered.
func (c *correlator) indexText(alerts []models.AlertRecord) *documentIndex {
	if c.analyzer == nil || len(c.rules[models.CorrelationSimilarity]) == 0 {
		return nil
	}
	ix := newDocumentIndex(c.analyzer)
	for i := range alerts {
		ix.add(alerts[i].ID, alertText(&alerts[i]))
	}
	return ix
}

func alertText(a *models.AlertRecord) string {
	return strings.TrimSpace(a.Title + " " + a.Description)
}

// summarizeEdges reduces a component's edges to its mean weight and the
// correlation type contributing the most edges. Count ties go to the
// earliest type in scorer order.
func summarizeEdges(edges []clusterEdge) (float64, models.CorrelationType) {
	counts := make(map[models.CorrelationType]int, 4)
	var sum float64
	for _, e := range edges {
		counts[e.typ]++
		sum += e.weight
	}
	dominant := models.CorrelationTemporal
	best := -1
	for _, typ := range scorerTypeOrder {
		if counts[typ] > best {
			dominant = typ
			best = counts[typ]
		}
	}
	return sum / float64(len(edges)), dominant
}

// clusterID derives a stable id from the sorted member alert ids, so the
// same membership yields the same cluster id on every pass.
func clusterID(members []models.AlertRecord) string {
	ids := make([]string, 0, len(members))
	for i := range members {
		ids = append(ids, members[i].ID)
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, ",")))
	return "cl-" + hex.EncodeToString(sum[:8])
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", models.ErrCancelled, ctx.Err())
	default:
		return nil
	}
}
