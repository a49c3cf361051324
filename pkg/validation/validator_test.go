package validation

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func metric(id string, value float64) *models.ComputedMetric {
	return &models.ComputedMetric{MetricID: id, Value: value}
}

func resultsByName(results []models.ValidationResult) map[string]models.ValidationResult {
	byName := make(map[string]models.ValidationResult, len(results))
	for _, r := range results {
		byName[r.InvariantName] = r
	}
	return byName
}

func TestValidateAll(t *testing.T) {
	validator := NewValidator(testLogger())

	metrics := []*models.ComputedMetric{
		metric("mrr", 3000),
		metric("new_mrr", 400),
		metric("expansion_mrr", 150),
		metric("contraction_mrr", 50),
		metric("churn_mrr", 100),
		metric("nrr", 105),
	}

	results := validator.ValidateAll(context.Background(), metrics)
	require.Len(t, results, 3)
	byName := resultsByName(results)

	t.Run("mrr decomposition is reported, never failed", func(t *testing.T) {
		result := byName["mrr_decomposition_sum"]
		assert.True(t, result.Passed)
		assert.Equal(t, models.SeverityError, result.Severity)
		assert.Contains(t, result.Message, "net=400")
		assert.Equal(t, 400.0, result.Details["new"])
	})

	t.Run("nrr inside plausible band", func(t *testing.T) {
		result := byName["nrr_range"]
		assert.True(t, result.Passed)
		assert.Equal(t, models.SeverityWarning, result.Severity)
	})

	t.Run("quick ratio denominator is positive", func(t *testing.T) {
		result := byName["quick_ratio_positive_denominator"]
		assert.True(t, result.Passed)
		assert.Equal(t, models.SeverityInfo, result.Severity)
	})
}

func TestValidateAll_Failures(t *testing.T) {
	validator := NewValidator(testLogger())

	t.Run("nrr outside band", func(t *testing.T) {
		byName := resultsByName(validator.ValidateAll(context.Background(), []*models.ComputedMetric{
			metric("nrr", 450),
		}))
		result := byName["nrr_range"]
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "outside")
	})

	t.Run("negative nrr fails", func(t *testing.T) {
		byName := resultsByName(validator.ValidateAll(context.Background(), []*models.ComputedMetric{
			metric("nrr", -20),
		}))
		assert.False(t, byName["nrr_range"].Passed)
	})

	t.Run("zero quick ratio denominator", func(t *testing.T) {
		byName := resultsByName(validator.ValidateAll(context.Background(), nil))
		result := byName["quick_ratio_positive_denominator"]
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "zero")
	})
}
