package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	vars := map[string]float64{
		"mrr":             3000,
		"expansion_mrr":   200,
		"contraction_mrr": 50,
		"churn_mrr":       100,
		"mrr_previous":    2900,
	}

	tests := []struct {
		name       string
		expression string
		expected   float64
	}{
		{"addition and subtraction", "mrr + expansion_mrr - churn_mrr", 3100},
		{"precedence", "2 + 3 * 4", 14},
		{"parentheses", "(2 + 3) * 4", 20},
		{"division", "mrr / 2", 1500},
		{"unary minus", "-mrr + 3000", 0},
		{"nrr style formula", "(mrr + expansion_mrr - contraction_mrr - churn_mrr) / mrr_previous * 100", (3000.0 + 200 - 50 - 100) / 2900 * 100},
		{"float literals", "0.5 * 10", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Evaluate(tt.expression, vars)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, value, 1e-9)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"division by zero", "1 / (2 - 2)"},
		{"unknown identifier", "mrr / unknown_metric"},
		{"dangling operator", "1 +"},
		{"unbalanced parenthesis", "(1 + 2"},
		{"empty expression", ""},
		{"unexpected character", "1 ^ 2"},
		{"malformed number", "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expression, map[string]float64{"mrr": 1})
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("(a + b) / c * 100"))
	assert.Error(t, Validate("a + (b"))
	// Identifier resolution is deferred to evaluation.
	assert.NoError(t, Validate("never_defined / 0"))
}

func TestIdentifiers(t *testing.T) {
	idents := Identifiers("(mrr + expansion_mrr - mrr) / mrr_previous * 100")
	assert.Equal(t, []string{"mrr", "expansion_mrr", "mrr_previous"}, idents)
}
