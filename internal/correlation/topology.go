package correlation

import (
	"fmt"
	"sort"
)

// ServiceGraph is the directed service dependency topology. An edge A -> B
// means A depends on B, so a failure of B can surface as an alert on A.
// Graphs are immutable once built; the engine swaps whole graphs atomically
// and in-flight correlation passes keep the snapshot they started with.
type ServiceGraph struct {
	dependsOn  map[string][]string // service -> services it depends on, sorted
	dependents map[string][]string // service -> services depending on it, sorted
	nodes      []string            // sorted
	edgeCount  int
}

// NewServiceGraph builds a graph from a wholesale dependency mapping.
// Duplicate and self edges are dropped; adjacency is sorted so traversal
// order is deterministic.
func NewServiceGraph(deps map[string][]string) *ServiceGraph {
	g := &ServiceGraph{
		dependsOn:  make(map[string][]string, len(deps)),
		dependents: make(map[string][]string),
	}

	nodeSet := make(map[string]struct{})
	for service, targets := range deps {
		if service == "" {
			continue
		}
		nodeSet[service] = struct{}{}
		seen := make(map[string]struct{}, len(targets))
		for _, target := range targets {
			if target == "" || target == service {
				continue
			}
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			nodeSet[target] = struct{}{}
			g.dependsOn[service] = append(g.dependsOn[service], target)
			g.dependents[target] = append(g.dependents[target], service)
			g.edgeCount++
		}
	}

	for _, adj := range g.dependsOn {
		sort.Strings(adj)
	}
	for _, adj := range g.dependents {
		sort.Strings(adj)
	}
	g.nodes = make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		g.nodes = append(g.nodes, n)
	}
	sort.Strings(g.nodes)
	return g
}

// DependsOn reports a direct dependency edge service -> other.
func (g *ServiceGraph) DependsOn(service, other string) bool {
	for _, t := range g.dependsOn[service] {
		if t == other {
			return true
		}
	}
	return false
}

// Dependencies returns the services the given service depends on directly.
func (g *ServiceGraph) Dependencies(service string) []string {
	return g.dependsOn[service]
}

// Dependents returns the services that directly depend on the given one.
func (g *ServiceGraph) Dependents(service string) []string {
	return g.dependents[service]
}

// PropagationDistance returns the hop count of the shortest chain by which
// a failure of `from` can reach `to`, following dependents edges. Bounded
// by maxHops; ok is false when no such chain exists within the bound or
// the services are equal.
func (g *ServiceGraph) PropagationDistance(from, to string, maxHops int) (int, bool) {
	if from == to || maxHops < 1 {
		return 0, false
	}
	type hop struct {
		node string
		dist int
	}
	visited := map[string]struct{}{from: {}}
	queue := []hop{{from, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist >= maxHops {
			continue
		}
		for _, next := range g.dependents[cur.node] {
			if next == to {
				return cur.dist + 1, true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, hop{next, cur.dist + 1})
		}
	}
	return 0, false
}

// Reaches reports whether a failure of `from` can propagate to `to`
// through any number of hops.
func (g *ServiceGraph) Reaches(from, to string) bool {
	_, ok := g.PropagationDistance(from, to, len(g.nodes))
	return ok
}

// Nodes returns every service mentioned by the topology, sorted.
func (g *ServiceGraph) Nodes() []string {
	return g.nodes
}

func (g *ServiceGraph) Size() int { return len(g.nodes) }

func (g *ServiceGraph) EdgeCount() int { return g.edgeCount }

func (g *ServiceGraph) String() string {
	return fmt.Sprintf("ServiceGraph{services: %d, edges: %d}", len(g.nodes), g.edgeCount)
}
