// Package validation checks computed metrics against known business
// invariants. Checks annotate a computation run; they never fail it.
package validation

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Validator runs the fixed invariant checks over a computation run.
type Validator struct {
	logger ectologger.Logger
}

// NewValidator creates a new metric validator
func NewValidator(logger ectologger.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidateAll runs every invariant check and returns one result per check.
func (v *Validator) ValidateAll(ctx context.Context, metrics []*models.ComputedMetric) []models.ValidationResult {
	values := make(map[string]float64, len(metrics))
	for _, metric := range metrics {
		values[metric.MetricID] = metric.Value
	}

	results := []models.ValidationResult{
		v.checkMRRDecomposition(values),
		v.checkNRRRange(values),
		v.checkQuickRatio(values),
	}

	failed := 0
	for _, result := range results {
		if !result.Passed {
			failed++
		}
	}
	v.logger.WithContext(ctx).WithFields(map[string]any{
		"check_count":  len(results),
		"failed_count": failed,
	}).Debug("Validated computed metrics")

	return results
}

// checkMRRDecomposition reports the MRR component breakdown. The components
// measure flows rather than a strict partition of the MRR balance, so the
// check always passes and exists for its reported detail.
func (v *Validator) checkMRRDecomposition(values map[string]float64) models.ValidationResult {
	newMRR := values["new_mrr"]
	expansion := values["expansion_mrr"]
	contraction := values["contraction_mrr"]
	churn := values["churn_mrr"]
	netChange := newMRR + expansion - contraction - churn

	return models.ValidationResult{
		InvariantName: "mrr_decomposition_sum",
		Passed:        true,
		Severity:      models.SeverityError,
		Message: fmt.Sprintf("MRR components: new=%v, exp=%v, contr=%v, churn=%v, net=%v",
			newMRR, expansion, contraction, churn, netChange),
		Details: map[string]any{
			"new":         newMRR,
			"expansion":   expansion,
			"contraction": contraction,
			"churn":       churn,
		},
	}
}

// checkNRRRange flags net revenue retention outside the plausible 0-300% band.
func (v *Validator) checkNRRRange(values map[string]float64) models.ValidationResult {
	nrr := values["nrr"]
	valid := nrr >= 0 && nrr <= 300

	position := "within"
	if !valid {
		position = "outside"
	}

	return models.ValidationResult{
		InvariantName: "nrr_range",
		Passed:        valid,
		Severity:      models.SeverityWarning,
		Message:       fmt.Sprintf("NRR is %.1f%% — %s expected range (0-300%%)", nrr, position),
	}
}

// checkQuickRatio flags a zero quick-ratio denominator, which degrades the
// ratio to 0.0 during computation.
func (v *Validator) checkQuickRatio(values map[string]float64) models.ValidationResult {
	denominator := values["contraction_mrr"] + values["churn_mrr"]
	valid := denominator > 0

	message := fmt.Sprintf("Quick ratio denominator: %.0f", denominator)
	if !valid {
		message += " (zero)"
	}

	return models.ValidationResult{
		InvariantName: "quick_ratio_positive_denominator",
		Passed:        valid,
		Severity:      models.SeverityInfo,
		Message:       message,
	}
}
