package detection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testDate(t *testing.T) time.Time {
	t.Helper()
	date, err := time.Parse("2006-01-02", "2024-03-31")
	require.NoError(t, err)
	return date
}

// oscillating returns n points alternating through [100, 104].
func oscillating(n int) []float64 {
	values := make([]float64, n)
	steps := []float64{100, 102, 104, 101, 103}
	for i := range values {
		values[i] = steps[i%len(steps)]
	}
	return values
}

func TestDetectZScore(t *testing.T) {
	detector := NewStatisticalDetector(DefaultConfig())

	t.Run("spike against a stable baseline fires above", func(t *testing.T) {
		anomaly := detector.DetectZScore("mrr", 200, testDate(t), oscillating(30))

		require.NotNil(t, anomaly)
		assert.Equal(t, models.MethodZScore, anomaly.Method)
		assert.Greater(t, anomaly.Severity, 0.0)
		assert.LessOrEqual(t, anomaly.Severity, 1.0)
		assert.Equal(t, "above", anomaly.Context["direction"])
		assert.Equal(t, 200.0, anomaly.ActualValue)
		assert.Greater(t, anomaly.Deviation, 0.0)
	})

	t.Run("drop fires below", func(t *testing.T) {
		anomaly := detector.DetectZScore("mrr", 10, testDate(t), oscillating(30))

		require.NotNil(t, anomaly)
		assert.Equal(t, "below", anomaly.Context["direction"])
		assert.Less(t, anomaly.Deviation, 0.0)
	})

	t.Run("zero variance reports nothing even for large deviation", func(t *testing.T) {
		flat := make([]float64, 30)
		for i := range flat {
			flat[i] = 100
		}
		assert.Nil(t, detector.DetectZScore("mrr", 10000, testDate(t), flat))
	})

	t.Run("needs at least 7 points", func(t *testing.T) {
		assert.Nil(t, detector.DetectZScore("mrr", 200, testDate(t), oscillating(6)))
	})

	t.Run("value inside the baseline does not fire", func(t *testing.T) {
		assert.Nil(t, detector.DetectZScore("mrr", 102, testDate(t), oscillating(30)))
	})

	t.Run("only the trailing window feeds the baseline", func(t *testing.T) {
		// 60 ancient points around 1000, then 30 recent points around 102.
		history := make([]float64, 0, 90)
		for i := 0; i < 60; i++ {
			history = append(history, 1000)
		}
		history = append(history, oscillating(30)...)

		anomaly := detector.DetectZScore("mrr", 200, testDate(t), history)
		require.NotNil(t, anomaly)
		assert.Equal(t, 30, anomaly.Context["baseline_window"])
		assert.Less(t, anomaly.BaselineValue, 110.0)
	})
}

func TestDetectRateOfChange(t *testing.T) {
	detector := NewStatisticalDetector(DefaultConfig())

	t.Run("zero previous value reports nothing", func(t *testing.T) {
		assert.Nil(t, detector.DetectRateOfChange("mrr", 500, 0, testDate(t), nil))
	})

	t.Run("simple threshold with sparse history", func(t *testing.T) {
		anomaly := detector.DetectRateOfChange("mrr", 130, 100, testDate(t), []float64{0.01, 0.02})

		require.NotNil(t, anomaly)
		assert.Equal(t, models.MethodRateOfChange, anomaly.Method)
		assert.Equal(t, "simple_threshold", anomaly.Context["method"])
		assert.InDelta(t, 0.3, anomaly.Deviation, 1e-9)
		assert.InDelta(t, 0.6, anomaly.Severity, 1e-9)
	})

	t.Run("small change below simple threshold", func(t *testing.T) {
		assert.Nil(t, detector.DetectRateOfChange("mrr", 110, 100, testDate(t), nil))
	})

	t.Run("standardized against historical changes", func(t *testing.T) {
		historical := []float64{0.01, -0.02, 0.03, 0.01, -0.01, 0.02, 0.0, 0.01}
		anomaly := detector.DetectRateOfChange("mrr", 150, 100, testDate(t), historical)

		require.NotNil(t, anomaly)
		assert.Contains(t, anomaly.Context, "z_change")
		assert.Greater(t, anomaly.Severity, 0.0)
		assert.LessOrEqual(t, anomaly.Severity, 1.0)
	})

	t.Run("typical change with rich history does not fire", func(t *testing.T) {
		historical := []float64{0.01, -0.02, 0.03, 0.01, -0.01, 0.02, 0.0, 0.01}
		assert.Nil(t, detector.DetectRateOfChange("mrr", 101, 100, testDate(t), historical))
	})

	t.Run("flat historical changes report nothing", func(t *testing.T) {
		historical := []float64{0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01}
		assert.Nil(t, detector.DetectRateOfChange("mrr", 150, 100, testDate(t), historical))
	})
}
