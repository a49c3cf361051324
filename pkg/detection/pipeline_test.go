package detection

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestPipeline(t *testing.T, outlier OutlierModel) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(testLogger(), DefaultConfig(), outlier)
	require.NoError(t, err)
	return pipeline
}

type stubOutlier struct {
	anomaly *models.DetectedAnomaly
	calls   int
}

func (s *stubOutlier) Detect(metricID string, currentValue float64, currentDate time.Time, historicalValues []float64) *models.DetectedAnomaly {
	s.calls++
	return s.anomaly
}

func TestNewPipeline_ConfigValidation(t *testing.T) {
	config := DefaultConfig()
	config.BaselineWindow = 2
	_, err := NewPipeline(testLogger(), config, nil)
	assert.Error(t, err)
}

func TestPipelineDetect(t *testing.T) {
	ctx := context.Background()

	t.Run("empty history yields empty result", func(t *testing.T) {
		pipeline := newTestPipeline(t, nil)
		anomalies := pipeline.Detect(ctx, "mrr", 500, testDate(t), nil)
		assert.NotNil(t, anomalies)
		assert.Empty(t, anomalies)
	})

	t.Run("spike fires both statistical methods", func(t *testing.T) {
		pipeline := newTestPipeline(t, nil)
		anomalies := pipeline.Detect(ctx, "mrr", 300, testDate(t), oscillating(30))

		methods := make([]string, 0, len(anomalies))
		for _, a := range anomalies {
			methods = append(methods, a.Method)
		}
		assert.Contains(t, methods, models.MethodZScore)
		assert.Contains(t, methods, models.MethodRateOfChange)
	})

	t.Run("single historical point skips rate of change", func(t *testing.T) {
		pipeline := newTestPipeline(t, nil)
		anomalies := pipeline.Detect(ctx, "mrr", 300, testDate(t), []float64{100})
		assert.Empty(t, anomalies)
	})

	t.Run("zero-denominator changes are skipped", func(t *testing.T) {
		pipeline := newTestPipeline(t, nil)
		// A zero in history would divide by zero when deriving changes.
		anomalies := pipeline.Detect(ctx, "mrr", 160, testDate(t), []float64{0, 100, 102})
		for _, a := range anomalies {
			assert.NotEqual(t, models.MethodZScore, a.Method)
		}
	})

	t.Run("outlier model contributes when present", func(t *testing.T) {
		stub := &stubOutlier{anomaly: &models.DetectedAnomaly{
			MetricID: "mrr",
			Method:   models.MethodIsolationForest,
			Severity: 0.8,
		}}
		pipeline := newTestPipeline(t, stub)

		anomalies := pipeline.Detect(ctx, "mrr", 102, testDate(t), oscillating(30))
		assert.Equal(t, 1, stub.calls)

		methods := make([]string, 0, len(anomalies))
		for _, a := range anomalies {
			methods = append(methods, a.Method)
		}
		assert.Contains(t, methods, models.MethodIsolationForest)
	})

	t.Run("nil outlier result adds nothing", func(t *testing.T) {
		stub := &stubOutlier{}
		pipeline := newTestPipeline(t, stub)
		anomalies := pipeline.Detect(ctx, "mrr", 102, testDate(t), oscillating(30))
		assert.Equal(t, 1, stub.calls)
		assert.Empty(t, anomalies)
	})
}

func TestIsolationForest(t *testing.T) {
	forest := NewIsolationForest(DefaultForestConfig())

	t.Run("needs at least 7 points", func(t *testing.T) {
		assert.Nil(t, forest.Detect("mrr", 500, testDate(t), oscillating(6)))
	})

	t.Run("flags a clear outlier", func(t *testing.T) {
		anomaly := forest.Detect("mrr", 500, testDate(t), oscillating(30))

		require.NotNil(t, anomaly)
		assert.Equal(t, models.MethodIsolationForest, anomaly.Method)
		assert.Greater(t, anomaly.Severity, 0.0)
		assert.LessOrEqual(t, anomaly.Severity, 1.0)
		assert.Greater(t, anomaly.Deviation, 0.0)
	})

	t.Run("tiny deviation on a stable series is suppressed", func(t *testing.T) {
		assert.Nil(t, forest.Detect("mrr", 102.5, testDate(t), oscillating(30)))
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		first := forest.Detect("mrr", 500, testDate(t), oscillating(30))
		second := forest.Detect("mrr", 500, testDate(t), oscillating(30))
		require.NotNil(t, first)
		require.NotNil(t, second)
		assert.Equal(t, first, second)
	})
}

func TestIsolationForest_Multivariate(t *testing.T) {
	forest := NewIsolationForest(DefaultForestConfig())

	t.Run("joint spike across metrics is flagged", func(t *testing.T) {
		series := []MetricSeries{
			{MetricID: "mrr", Value: 500, HistoricalValues: oscillating(30)},
			{MetricID: "arpu", Value: 900, HistoricalValues: oscillating(30)},
		}
		anomalies := forest.DetectMultivariate(series, testDate(t))

		require.Len(t, anomalies, 1)
		assert.Equal(t, models.MethodIsolationForestMultivariate, anomalies[0].Method)
		assert.Equal(t, "multivariate_mrr_arpu", anomalies[0].MetricID)
		assert.ElementsMatch(t, []string{"mrr", "arpu"}, anomalies[0].Context["involved_metrics"])
	})

	t.Run("groups need at least two metrics", func(t *testing.T) {
		series := []MetricSeries{
			{MetricID: "mrr", Value: 500, HistoricalValues: oscillating(30)},
			{MetricID: "arpu", Value: 900, HistoricalValues: oscillating(12)},
		}
		assert.Empty(t, forest.DetectMultivariate(series, testDate(t)))
	})

	t.Run("short series are excluded", func(t *testing.T) {
		series := []MetricSeries{
			{MetricID: "mrr", Value: 500, HistoricalValues: oscillating(5)},
			{MetricID: "arpu", Value: 900, HistoricalValues: oscillating(5)},
		}
		assert.Empty(t, forest.DetectMultivariate(series, testDate(t)))
	})
}
