package ontology

import "github.com/Ramsey-B/fern/pkg/models"

// NewCoreRegistry builds the standard SaaS revenue registry.
func NewCoreRegistry() (*Registry, error) {
	return NewRegistry(CoreMetrics(), CoreEdges())
}

// CoreMetrics returns the standard SaaS metric definitions: MRR and its
// four-way decomposition, the retention and efficiency formulas over them,
// and customer counts.
func CoreMetrics() []models.MetricDef {
	return []models.MetricDef{
		{
			MetricID:    "mrr",
			Name:        "Monthly Recurring Revenue",
			Description: "Total recurring revenue normalized to a monthly period.",
			Category:    models.MetricCategoryRevenue,
			Unit:        models.MetricUnitCurrency,
			Direction:   models.MetricDirectionUpGood,
			Computation: models.ComputationTemplate{
				Type:   models.ComputationSum,
				Source: "subscription",
				Filter: map[string]any{"status": "active"},
				Field:  "mrr_amount",
			},
			Decomposition: []string{"new_mrr", "expansion_mrr", "contraction_mrr", "churn_mrr"},
			Related:       []string{"arr", "arpu", "active_customers"},
		},
		{
			MetricID:    "new_mrr",
			Name:        "New MRR",
			Description: "MRR from newly created subscriptions in the period.",
			Category:    models.MetricCategoryGrowth,
			Unit:        models.MetricUnitCurrency,
			Direction:   models.MetricDirectionUpGood,
			Computation: models.ComputationTemplate{
				Type:   models.ComputationSum,
				Source: "subscription",
				Filter: map[string]any{"status": "active", "created_in_period": true},
				Field:  "mrr_amount",
			},
			Parent: "mrr",
		},
		{
			MetricID:    "expansion_mrr",
			Name:        "Expansion MRR",
			Description: "Increase in MRR from existing customers.",
			Category:    models.MetricCategoryGrowth,
			Unit:        models.MetricUnitCurrency,
			Direction:   models.MetricDirectionUpGood,
			Computation: models.ComputationTemplate{
				Type:   models.ComputationSumPositiveDelta,
				Source: "subscription",
				Filter: map[string]any{"status": "active", "existing_customer": true},
				Field:  "mrr_amount",
			},
			Parent: "mrr",
		},
		{
			MetricID:    "contraction_mrr",
			Name:        "Contraction MRR",
			Description: "Decrease in MRR from existing customers.",
			Category:    models.MetricCategoryRetention,
			Unit:        models.MetricUnitCurrency,
			Direction:   models.MetricDirectionDownGood,
			Computation: models.ComputationTemplate{
				Type:   models.ComputationSumNegativeDelta,
				Source: "subscription",
				Filter: map[string]any{"status": "active", "existing_customer": true},
				Field:  "mrr_amount",
			},
			Parent: "mrr",
		},
		{
			MetricID:    "churn_mrr",
			Name:        "Churned MRR",
			Description: "MRR lost from cancelled subscriptions.",
			Category:    models.MetricCategoryRetention,
			Unit:        models.MetricUnitCurrency,
			Direction:   models.MetricDirectionDownGood,
			Computation: models.ComputationTemplate{
				Type:   models.ComputationSum,
				Source: "subscription",
				Filter: map[string]any{"status": "canceled", "canceled_in_period": true},
				Field:  "mrr_amount",
			},
			Parent: "mrr",
		},
		{
			MetricID:    "nrr",
			Name:        "Net Revenue Retention",
			Description: "Percentage of revenue retained from existing customers.",
			Category:    models.MetricCategoryRetention,
			Unit:        models.MetricUnitPercent,
			Direction:   models.MetricDirectionUpGood,
			Computation: models.ComputationTemplate{
				Type:    models.ComputationFormula,
				Formula: "(mrr + expansion_mrr - contraction_mrr - churn_mrr) / mrr_previous * 100",
			},
			Related: []string{"mrr", "expansion_mrr", "contraction_mrr", "churn_mrr"},
		},
		{
			MetricID:    "active_customers",
			Name:        "Active Customers",
			Description: "Count of customers with at least one active subscription.",
			Category:    models.MetricCategoryGrowth,
			Unit:        models.MetricUnitCount,
			Direction:   models.MetricDirectionUpGood,
			Computation: models.ComputationTemplate{
				Type:   models.ComputationCountDistinct,
				Source: "subscription",
				Filter: map[string]any{"status": "active"},
				Field:  "customer_entity_id",
			},
		},
		{
			MetricID:    "arpu",
			Name:        "Average Revenue Per User",
			Description: "MRR divided by active customers.",
			Category:    models.MetricCategoryEfficiency,
			Unit:        models.MetricUnitCurrency,
			Direction:   models.MetricDirectionUpGood,
			Computation: models.ComputationTemplate{
				Type:    models.ComputationFormula,
				Formula: "mrr / active_customers",
			},
			Related: []string{"mrr", "active_customers"},
		},
		{
			MetricID:    "quick_ratio",
			Name:        "Quick Ratio",
			Description: "(New + Expansion) / (Contraction + Churn). Measures growth efficiency.",
			Category:    models.MetricCategoryEfficiency,
			Unit:        models.MetricUnitRatio,
			Direction:   models.MetricDirectionUpGood,
			Computation: models.ComputationTemplate{
				Type:    models.ComputationFormula,
				Formula: "(new_mrr + expansion_mrr) / (contraction_mrr + churn_mrr)",
			},
			Related: []string{"new_mrr", "expansion_mrr", "contraction_mrr", "churn_mrr"},
		},
		{
			MetricID:    "logo_churn_rate",
			Name:        "Logo Churn Rate",
			Description: "Percentage of customers lost in the period.",
			Category:    models.MetricCategoryRetention,
			Unit:        models.MetricUnitPercent,
			Direction:   models.MetricDirectionDownGood,
			Computation: models.ComputationTemplate{
				Type:    models.ComputationFormula,
				Formula: "churned_customers / active_customers_start * 100",
			},
		},
	}
}

// CoreEdges returns the DAG over the core metrics.
func CoreEdges() []models.MetricEdge {
	return []models.MetricEdge{
		{Parent: "mrr", Child: "new_mrr", Relationship: models.EdgeDecomposition, Weight: 1.0},
		{Parent: "mrr", Child: "expansion_mrr", Relationship: models.EdgeDecomposition, Weight: 1.0},
		{Parent: "mrr", Child: "contraction_mrr", Relationship: models.EdgeDecomposition, Weight: 1.0},
		{Parent: "mrr", Child: "churn_mrr", Relationship: models.EdgeDecomposition, Weight: 1.0},
		{Parent: "nrr", Child: "mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "nrr", Child: "expansion_mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "nrr", Child: "contraction_mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "nrr", Child: "churn_mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "arpu", Child: "mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "arpu", Child: "active_customers", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "quick_ratio", Child: "new_mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "quick_ratio", Child: "expansion_mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "quick_ratio", Child: "contraction_mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
		{Parent: "quick_ratio", Child: "churn_mrr", Relationship: models.EdgeFormulaInput, Weight: 1.0},
	}
}
