package detection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/ontology"
)

func newDecompositionDetector(t *testing.T) *DecompositionDetector {
	t.Helper()
	registry, err := ontology.NewCoreRegistry()
	require.NoError(t, err)
	return NewDecompositionDetector(registry, newTestPipeline(t, nil))
}

func TestDetectComponentAnomalies(t *testing.T) {
	detector := newDecompositionDetector(t)
	ctx := context.Background()

	t.Run("component spike hidden in a stable parent", func(t *testing.T) {
		historical := make([]map[string]float64, 30)
		for i := range historical {
			historical[i] = map[string]float64{
				"new_mrr":         400 + float64(i%3),
				"expansion_mrr":   100 + float64(i%2),
				"contraction_mrr": 50,
				"churn_mrr":       100 + float64(i%4),
			}
		}
		current := map[string]float64{
			"new_mrr":         401,
			"expansion_mrr":   101,
			"contraction_mrr": 50,
			"churn_mrr":       900, // spike
		}

		anomalies := detector.DetectComponentAnomalies(ctx, "mrr", current, historical, testDate(t))

		require.NotEmpty(t, anomalies)
		for _, anomaly := range anomalies {
			assert.Equal(t, "mrr", anomaly.Context["parent_metric"])
			assert.Equal(t, "churn_mrr", anomaly.Context["component"])
			assert.Equal(t, "churn_mrr", anomaly.MetricID)
		}
	})

	t.Run("metric without decomposition yields nothing", func(t *testing.T) {
		anomalies := detector.DetectComponentAnomalies(ctx, "arpu", map[string]float64{}, nil, testDate(t))
		assert.Empty(t, anomalies)
	})

	t.Run("no history yields nothing", func(t *testing.T) {
		anomalies := detector.DetectComponentAnomalies(ctx, "mrr", map[string]float64{"churn_mrr": 900}, nil, testDate(t))
		assert.Empty(t, anomalies)
	})
}
