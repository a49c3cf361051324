// Package ontology defines the metric registry and its dependency DAG.
package ontology

import (
	"fmt"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Registry is the immutable set of metric definitions plus the DAG over
// them. It is constructed once at process start and passed explicitly into
// the computation engine; it is never mutated afterwards.
type Registry struct {
	defs  map[string]models.MetricDef
	order []string
	edges []models.MetricEdge
}

// NewRegistry builds and validates a registry. Integrity defects (an edge
// referencing an undefined metric, a self-loop, or a cycle) are fatal
// here so no batch is ever served from a broken configuration.
func NewRegistry(defs []models.MetricDef, edges []models.MetricEdge) (*Registry, error) {
	byID := make(map[string]models.MetricDef, len(defs))
	order := make([]string, 0, len(defs))
	for _, def := range defs {
		if _, err := utils.Validate(def); err != nil {
			return nil, fmt.Errorf("invalid metric definition %q: %w", def.MetricID, err)
		}
		if _, exists := byID[def.MetricID]; exists {
			return nil, fmt.Errorf("duplicate metric id %q", def.MetricID)
		}
		byID[def.MetricID] = def
		order = append(order, def.MetricID)
	}

	for _, edge := range edges {
		if edge.Parent == edge.Child {
			return nil, fmt.Errorf("metric edge %q -> %q is a self-loop", edge.Parent, edge.Child)
		}
		if _, ok := byID[edge.Parent]; !ok {
			return nil, fmt.Errorf("metric edge parent %q is not defined", edge.Parent)
		}
		if _, ok := byID[edge.Child]; !ok {
			return nil, fmt.Errorf("metric edge child %q is not defined", edge.Child)
		}
	}

	if cycle := findCycle(edges); cycle != "" {
		return nil, fmt.Errorf("metric DAG contains a cycle through %q", cycle)
	}

	return &Registry{defs: byID, order: order, edges: edges}, nil
}

// Get returns the definition for a metric id.
func (r *Registry) Get(metricID string) (models.MetricDef, bool) {
	def, ok := r.defs[metricID]
	return def, ok
}

// MetricIDs returns every metric id in definition order.
func (r *Registry) MetricIDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Defs returns every definition in definition order.
func (r *Registry) Defs() []models.MetricDef {
	defs := make([]models.MetricDef, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.defs[id])
	}
	return defs
}

// Edges returns a copy of the DAG edge set.
func (r *Registry) Edges() []models.MetricEdge {
	edges := make([]models.MetricEdge, len(r.edges))
	copy(edges, r.edges)
	return edges
}

// DecompositionChildren returns the declared decomposition children of a
// metric, in edge order.
func (r *Registry) DecompositionChildren(metricID string) []string {
	children := make([]string, 0)
	for _, edge := range r.edges {
		if edge.Parent == metricID && edge.Relationship == models.EdgeDecomposition {
			children = append(children, edge.Child)
		}
	}
	return children
}

// FormulaInputs returns the declared formula inputs of a metric.
func (r *Registry) FormulaInputs(metricID string) []string {
	inputs := make([]string, 0)
	for _, edge := range r.edges {
		if edge.Parent == metricID && edge.Relationship == models.EdgeFormulaInput {
			inputs = append(inputs, edge.Child)
		}
	}
	return inputs
}

// Parents returns every metric that has an edge pointing at the given id.
func (r *Registry) Parents(metricID string) []string {
	parents := make([]string, 0)
	for _, edge := range r.edges {
		if edge.Child == metricID {
			parents = append(parents, edge.Parent)
		}
	}
	return parents
}

// RelatedMetrics returns the metrics a definition names as related, in
// declaration order. Related ids are advisory and may reference metrics
// outside the registry.
func (r *Registry) RelatedMetrics(metricID string) []string {
	def, ok := r.defs[metricID]
	if !ok {
		return []string{}
	}
	related := make([]string, len(def.Related))
	copy(related, def.Related)
	return related
}

// findCycle runs a three-color depth-first search over the edge set and
// returns a node on a cycle, or "".
func findCycle(edges []models.MetricEdge) string {
	adjacent := make(map[string][]string)
	for _, edge := range edges {
		adjacent[edge.Parent] = append(adjacent[edge.Parent], edge.Child)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)

	var visit func(node string) string
	visit = func(node string) string {
		color[node] = gray
		for _, next := range adjacent[node] {
			switch color[next] {
			case gray:
				return next
			case white:
				if found := visit(next); found != "" {
					return found
				}
			}
		}
		color[node] = black
		return ""
	}

	for node := range adjacent {
		if color[node] == white {
			if found := visit(node); found != "" {
				return found
			}
		}
	}
	return ""
}
