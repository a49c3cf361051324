package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func metricDef(id string, computationType string) models.MetricDef {
	def := models.MetricDef{
		MetricID:    id,
		Name:        id,
		Category:    models.MetricCategoryRevenue,
		Unit:        models.MetricUnitCurrency,
		Direction:   models.MetricDirectionUpGood,
		Computation: models.ComputationTemplate{Type: computationType},
	}
	if computationType == models.ComputationFormula {
		def.Computation.Formula = "1 + 1"
	}
	return def
}

func TestNewRegistry(t *testing.T) {
	t.Run("accepts a valid DAG", func(t *testing.T) {
		registry, err := NewRegistry(
			[]models.MetricDef{metricDef("a", models.ComputationSum), metricDef("b", models.ComputationSum)},
			[]models.MetricEdge{{Parent: "a", Child: "b", Relationship: models.EdgeDecomposition, Weight: 1.0}},
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, registry.MetricIDs())
	})

	t.Run("rejects duplicate metric ids", func(t *testing.T) {
		_, err := NewRegistry(
			[]models.MetricDef{metricDef("a", models.ComputationSum), metricDef("a", models.ComputationSum)},
			nil,
		)
		assert.Error(t, err)
	})

	t.Run("rejects self-loops", func(t *testing.T) {
		_, err := NewRegistry(
			[]models.MetricDef{metricDef("a", models.ComputationSum)},
			[]models.MetricEdge{{Parent: "a", Child: "a", Relationship: models.EdgeDecomposition}},
		)
		assert.Error(t, err)
	})

	t.Run("rejects edges with undefined endpoints", func(t *testing.T) {
		_, err := NewRegistry(
			[]models.MetricDef{metricDef("a", models.ComputationSum)},
			[]models.MetricEdge{{Parent: "a", Child: "ghost", Relationship: models.EdgeDecomposition}},
		)
		assert.Error(t, err)

		_, err = NewRegistry(
			[]models.MetricDef{metricDef("a", models.ComputationSum)},
			[]models.MetricEdge{{Parent: "ghost", Child: "a", Relationship: models.EdgeDecomposition}},
		)
		assert.Error(t, err)
	})

	t.Run("rejects cycles", func(t *testing.T) {
		_, err := NewRegistry(
			[]models.MetricDef{
				metricDef("a", models.ComputationSum),
				metricDef("b", models.ComputationSum),
				metricDef("c", models.ComputationSum),
			},
			[]models.MetricEdge{
				{Parent: "a", Child: "b", Relationship: models.EdgeFormulaInput},
				{Parent: "b", Child: "c", Relationship: models.EdgeFormulaInput},
				{Parent: "c", Child: "a", Relationship: models.EdgeFormulaInput},
			},
		)
		assert.Error(t, err)
	})

	t.Run("rejects invalid definitions", func(t *testing.T) {
		_, err := NewRegistry([]models.MetricDef{{MetricID: "missing-everything"}}, nil)
		assert.Error(t, err)
	})
}

func TestCoreRegistry(t *testing.T) {
	registry, err := NewCoreRegistry()
	require.NoError(t, err)

	t.Run("mrr decomposition children", func(t *testing.T) {
		assert.Equal(t,
			[]string{"new_mrr", "expansion_mrr", "contraction_mrr", "churn_mrr"},
			registry.DecompositionChildren("mrr"),
		)
	})

	t.Run("a metric never decomposes into itself", func(t *testing.T) {
		for _, id := range registry.MetricIDs() {
			assert.NotContains(t, registry.DecompositionChildren(id), id)
		}
	})

	t.Run("formula inputs", func(t *testing.T) {
		assert.ElementsMatch(t,
			[]string{"mrr", "active_customers"},
			registry.FormulaInputs("arpu"),
		)
	})

	t.Run("parents", func(t *testing.T) {
		assert.Contains(t, registry.Parents("new_mrr"), "mrr")
		assert.Contains(t, registry.Parents("new_mrr"), "quick_ratio")
	})

	t.Run("related metrics", func(t *testing.T) {
		assert.Equal(t,
			[]string{"arr", "arpu", "active_customers"},
			registry.RelatedMetrics("mrr"),
		)
		assert.Empty(t, registry.RelatedMetrics("new_mrr"))
		assert.Empty(t, registry.RelatedMetrics("unknown"))
	})

	t.Run("lookups", func(t *testing.T) {
		def, ok := registry.Get("nrr")
		require.True(t, ok)
		assert.True(t, def.Computation.IsFormula())

		_, ok = registry.Get("unknown")
		assert.False(t, ok)
	})

	t.Run("accessors return copies", func(t *testing.T) {
		ids := registry.MetricIDs()
		ids[0] = "mutated"
		assert.NotEqual(t, "mutated", registry.MetricIDs()[0])

		edges := registry.Edges()
		edges[0].Parent = "mutated"
		assert.NotEqual(t, "mutated", registry.Edges()[0].Parent)
	})
}
