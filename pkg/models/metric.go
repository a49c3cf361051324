package models

import "time"

// MetricCategory groups metrics by business concern.
type MetricCategory string

const (
	MetricCategoryRevenue    MetricCategory = "revenue"
	MetricCategoryRetention  MetricCategory = "retention"
	MetricCategoryGrowth     MetricCategory = "growth"
	MetricCategoryEfficiency MetricCategory = "efficiency"
)

// MetricUnit is the unit a metric value is expressed in.
type MetricUnit string

const (
	MetricUnitCurrency MetricUnit = "currency"
	MetricUnitPercent  MetricUnit = "percent"
	MetricUnitCount    MetricUnit = "count"
	MetricUnitRatio    MetricUnit = "ratio"
	MetricUnitDays     MetricUnit = "days"
)

// MetricDirection records which way a metric is supposed to move.
type MetricDirection string

const (
	MetricDirectionUpGood   MetricDirection = "up_good"
	MetricDirectionDownGood MetricDirection = "down_good"
	MetricDirectionNeutral  MetricDirection = "neutral"
)

// Aggregation kinds for direct (non-formula) metrics.
const (
	ComputationSum              = "sum"
	ComputationCountDistinct    = "count_distinct"
	ComputationSumPositiveDelta = "sum_positive_delta"
	ComputationSumNegativeDelta = "sum_negative_delta"
	ComputationFormula          = "formula"
)

// ComputationTemplate describes how a metric is computed: either an
// aggregation (Type + Source + Filter + Field) or a formula over other
// metric ids (Type == ComputationFormula + Formula).
type ComputationTemplate struct {
	Type    string         `json:"type" validate:"required,oneof=sum count_distinct sum_positive_delta sum_negative_delta formula"`
	Source  string         `json:"source,omitempty"`
	Filter  map[string]any `json:"filter,omitempty"`
	Field   string         `json:"field,omitempty"`
	Formula string         `json:"formula,omitempty"`
}

// IsFormula reports whether the template is a formula computation.
func (t ComputationTemplate) IsFormula() bool { return t.Type == ComputationFormula }

// MetricDef is the universal definition of a business metric. Definitions
// are immutable configuration, loaded once into an ontology registry.
type MetricDef struct {
	MetricID      string              `json:"metric_id" validate:"required"`
	Name          string              `json:"name" validate:"required"`
	Description   string              `json:"description"`
	Category      MetricCategory      `json:"category" validate:"required"`
	Unit          MetricUnit          `json:"unit" validate:"required"`
	Direction     MetricDirection     `json:"direction" validate:"required"`
	Computation   ComputationTemplate `json:"computation" validate:"required"`
	Decomposition []string            `json:"decomposition,omitempty"`
	Parent        string              `json:"parent,omitempty"`
	Related       []string            `json:"related_metrics,omitempty"`
}

// Edge relationship kinds in the metric DAG.
const (
	EdgeDecomposition = "decomposition"
	EdgeFormulaInput  = "formula_input"
)

// MetricEdge is one directed edge of the metric DAG.
type MetricEdge struct {
	Parent       string  `json:"parent"`
	Child        string  `json:"child"`
	Relationship string  `json:"relationship"`
	Weight       float64 `json:"weight"`
}

// ComputationMeta carries provenance for one computation run.
type ComputationMeta struct {
	TenantID    string `json:"tenant_id"`
	EntityCount int    `json:"entity_count"`
	ComputedAt  string `json:"computed_at"`
}

// ComputedMetric is the value of one metric for one period, with optional
// period-over-period change and decomposition.
type ComputedMetric struct {
	MetricID       string             `json:"metric_id"`
	PeriodDate     time.Time          `json:"period_date"`
	Grain          string             `json:"grain"`
	Value          float64            `json:"value"`
	PreviousValue  *float64           `json:"previous_value,omitempty"`
	ChangeAbsolute *float64           `json:"change_absolute,omitempty"`
	ChangePercent  *float64           `json:"change_percent,omitempty"`
	Decomposition  map[string]float64 `json:"decomposition,omitempty"`
	Meta           ComputationMeta    `json:"computation_meta"`
}
