// Package computation computes metric values for a period from resolved
// entity data, following the registry's computation templates.
package computation

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/formula"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/ontology"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config contains configuration for the computation engine
type Config struct {
	// Grain is the period grain stamped on every computed metric.
	Grain string `validate:"required"`
}

// DefaultConfig returns the default computation configuration
func DefaultConfig() Config {
	return Config{Grain: "daily"}
}

// Engine computes every metric in a registry for one tenant and period.
// Computation is total: bad data degrades individual metrics to 0.0, it
// never fails the batch.
type Engine struct {
	logger   ectologger.Logger
	registry *ontology.Registry
	config   Config
}

// NewEngine creates a new computation engine
func NewEngine(logger ectologger.Logger, registry *ontology.Registry, config Config) *Engine {
	return &Engine{
		logger:   logger,
		registry: registry,
		config:   config,
	}
}

// ComputeAll computes all registry metrics for the period in two passes:
// direct aggregations first, then formulas over the direct results.
// previous maps metric id to its prior-period value; it drives change
// computation and binds `<metric_id>_previous` identifiers in formulas.
func (e *Engine) ComputeAll(
	ctx context.Context,
	tenantID string,
	periodDate time.Time,
	entities []map[string]any,
	previous map[string]float64,
) []*models.ComputedMetric {
	ctx, span := tracing.StartSpan(ctx, "computation.Engine.ComputeAll")
	defer span.End()

	if previous == nil {
		previous = map[string]float64{}
	}

	results := make(map[string]float64)
	ordered := make([]string, 0, len(e.registry.MetricIDs()))

	for _, metricID := range e.registry.MetricIDs() {
		def, _ := e.registry.Get(metricID)
		if !def.Computation.IsFormula() {
			results[metricID] = e.computeDirect(def, entities)
			ordered = append(ordered, metricID)
		}
	}

	vars := make(map[string]float64, len(results)+len(previous))
	for id, value := range results {
		vars[id] = value
	}
	for id, value := range previous {
		vars[id+"_previous"] = value
	}

	for _, metricID := range e.registry.MetricIDs() {
		def, _ := e.registry.Get(metricID)
		if def.Computation.IsFormula() {
			value := e.computeFormula(ctx, def, vars)
			results[metricID] = value
			vars[metricID] = value
			ordered = append(ordered, metricID)
		}
	}

	meta := models.ComputationMeta{
		TenantID:    tenantID,
		EntityCount: len(entities),
		ComputedAt:  periodDate.Format("2006-01-02"),
	}

	computed := make([]*models.ComputedMetric, 0, len(ordered))
	for _, metricID := range ordered {
		value := results[metricID]
		metric := &models.ComputedMetric{
			MetricID:   metricID,
			PeriodDate: periodDate,
			Grain:      e.config.Grain,
			Value:      value,
			Meta:       meta,
		}

		if prev, ok := previous[metricID]; ok {
			p := prev
			metric.PreviousValue = &p
			changeAbs := value - prev
			metric.ChangeAbsolute = &changeAbs
			if prev != 0 {
				changePct := (value - prev) / prev * 100
				metric.ChangePercent = &changePct
			}
		}

		if children := e.registry.DecompositionChildren(metricID); len(children) > 0 {
			decomposition := make(map[string]float64, len(children))
			for _, child := range children {
				decomposition[child] = results[child]
			}
			metric.Decomposition = decomposition
		}

		computed = append(computed, metric)
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":    tenantID,
		"period_date":  meta.ComputedAt,
		"metric_count": len(computed),
		"entity_count": len(entities),
	}).Info("Computed metrics")

	return computed
}

// computeDirect applies an aggregation template over the filtered entities.
func (e *Engine) computeDirect(def models.MetricDef, entities []map[string]any) float64 {
	template := def.Computation

	filtered := make([]map[string]any, 0, len(entities))
	for _, entity := range entities {
		if matchesFilter(entity, template.Filter) {
			filtered = append(filtered, entity)
		}
	}

	switch template.Type {
	case models.ComputationSum:
		total := 0.0
		for _, entity := range filtered {
			total += numericField(entity, template.Field)
		}
		return total
	case models.ComputationCountDistinct:
		distinct := make(map[string]bool)
		for _, entity := range filtered {
			value, ok := entity[template.Field]
			if !ok {
				value = entity["entity_id"]
			}
			distinct[fmt.Sprint(value)] = true
		}
		return float64(len(distinct))
	case models.ComputationSumPositiveDelta:
		total := 0.0
		for _, entity := range filtered {
			total += math.Max(0, numericField(entity, "delta"))
		}
		return total
	case models.ComputationSumNegativeDelta:
		total := 0.0
		for _, entity := range filtered {
			total += math.Min(0, numericField(entity, "delta"))
		}
		return math.Abs(total)
	}

	return 0.0
}

// computeFormula evaluates a formula template over the bound variables.
// Evaluation failures degrade the metric to 0.0 rather than failing the run.
func (e *Engine) computeFormula(ctx context.Context, def models.MetricDef, vars map[string]float64) float64 {
	value, err := formula.Evaluate(def.Computation.Formula, vars)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"metric_id": def.MetricID,
		}).Debug("Formula evaluation degraded to zero")
		return 0.0
	}
	return value
}

// matchesFilter reports whether an entity satisfies every filter condition.
// List values check membership, boolean true checks truthiness, anything
// else checks equality.
func matchesFilter(entity map[string]any, filters map[string]any) bool {
	for key, expected := range filters {
		actual := entity[key]
		switch exp := expected.(type) {
		case []any:
			found := false
			for _, candidate := range exp {
				if actual == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case []string:
			found := false
			for _, candidate := range exp {
				if actual == any(candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case bool:
			if exp && !truthy(actual) {
				return false
			}
			if !exp && actual != expected {
				return false
			}
		default:
			if actual != expected {
				return false
			}
		}
	}
	return true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

// numericField coerces an entity field to float64, treating missing,
// nil, and non-numeric values as 0.0.
func numericField(entity map[string]any, field string) float64 {
	value, ok := entity[field]
	if !ok || value == nil {
		return 0.0
	}
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0.0
		}
		return parsed
	default:
		return 0.0
	}
}
