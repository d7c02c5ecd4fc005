package correlation

import (
	"sort"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

// rankRootCauses orders a cluster's members by how likely each is the
// originating failure. Members whose service is not directly downstream of
// any other member's service are the dependency sources inside the cluster;
// they rank first by timestamp, then id. When the members carry no
// dependency signal at all, or every member sits on a cycle, the earliest
// alert stands alone.
func rankRootCauses(members []models.AlertRecord, graph *ServiceGraph) []string {
	if len(members) == 0 {
		return nil
	}
	ordered := make([]models.AlertRecord, len(members))
	copy(ordered, members)
	sortAlertsByTime(ordered)

	if graph == nil {
		return []string{ordered[0].ID}
	}

	services := make(map[string]struct{}, len(ordered))
	for i := range ordered {
		services[ordered[i].Service] = struct{}{}
	}

	hasEdges := false
	sources := make([]string, 0, len(ordered))
	for i := range ordered {
		m := &ordered[i]
		downstream := false
		for other := range services {
			if other == m.Service {
				continue
			}
			if graph.DependsOn(m.Service, other) {
				downstream = true
				hasEdges = true
			} else if graph.DependsOn(other, m.Service) {
				hasEdges = true
			}
		}
		if !downstream {
			sources = append(sources, m.ID)
		}
	}
	if !hasEdges || len(sources) == 0 {
		return []string{ordered[0].ID}
	}
	return sources
}

// assessImpact summarizes a cluster's blast radius: the distinct
// (service, host) pairs it touches, each positioned relative to the primary
// root-cause candidate's service.
func assessImpact(members []models.AlertRecord, graph *ServiceGraph, primaryID string) models.ImpactAssessment {
	assessment := models.ImpactAssessment{
		TotalAlerts:       len(members),
		SeverityBreakdown: make(map[string]int, 3),
	}
	if len(members) == 0 {
		return assessment
	}

	primaryService := members[0].Service
	for i := range members {
		if members[i].ID == primaryID {
			primaryService = members[i].Service
			break
		}
	}

	type nodeKey struct{ service, host string }
	seen := make(map[nodeKey]struct{}, len(members))
	services := make(map[string]struct{}, len(members))
	hosts := make(map[string]struct{}, len(members))
	nodes := make([]models.ImpactedNode, 0, len(members))

	for i := range members {
		m := &members[i]
		assessment.SeverityBreakdown[string(m.Severity)]++
		services[m.Service] = struct{}{}
		hosts[m.Host] = struct{}{}

		key := nodeKey{m.Service, m.Host}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		nodes = append(nodes, models.ImpactedNode{
			Service:  m.Service,
			Host:     m.Host,
			Relation: relationTo(primaryService, m.Service, graph),
		})
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Service != nodes[j].Service {
			return nodes[i].Service < nodes[j].Service
		}
		return nodes[i].Host < nodes[j].Host
	})

	assessment.AffectedServices = len(services)
	assessment.AffectedHosts = len(hosts)
	assessment.Nodes = nodes
	return assessment
}

func relationTo(rootService, service string, graph *ServiceGraph) models.ImpactRelation {
	if service == rootService {
		return models.ImpactRoot
	}
	if graph == nil {
		return models.ImpactRelated
	}
	if graph.Reaches(rootService, service) {
		return models.ImpactDownstream
	}
	if graph.Reaches(service, rootService) {
		return models.ImpactUpstream
	}
	return models.ImpactRelated
}
