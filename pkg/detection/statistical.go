// Package detection finds statistically unusual metric observations. All
// detectors are pure functions of their inputs: same series in, same
// anomalies out.
package detection

import (
	"math"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Config contains configuration for the statistical detector
type Config struct {
	// BaselineWindow is how many trailing points feed the z-score baseline.
	BaselineWindow int `validate:"required,min=7"`
	// ZThreshold is the minimum |z| that counts as a z-score anomaly.
	ZThreshold float64 `validate:"required,gt=0"`
	// ROCMultiplier is the minimum standardized change that counts as a
	// rate-of-change anomaly once enough history exists.
	ROCMultiplier float64 `validate:"required,gt=0"`
}

// DefaultConfig returns the default statistical detection configuration
func DefaultConfig() Config {
	return Config{
		BaselineWindow: 30,
		ZThreshold:     2.5,
		ROCMultiplier:  2.0,
	}
}

// StatisticalDetector applies z-score and rate-of-change tests to a single
// metric time series.
type StatisticalDetector struct {
	config Config
}

// NewStatisticalDetector creates a new statistical detector
func NewStatisticalDetector(config Config) *StatisticalDetector {
	return &StatisticalDetector{config: config}
}

// DetectZScore flags the current value when it sits far outside the trailing
// baseline. Needs at least 7 historical points; a flat baseline (std == 0)
// cannot be normalized and reports nothing.
func (d *StatisticalDetector) DetectZScore(
	metricID string, currentValue float64, currentDate time.Time, historicalValues []float64,
) *models.DetectedAnomaly {
	if len(historicalValues) < 7 {
		return nil
	}

	baseline := historicalValues
	if len(baseline) > d.config.BaselineWindow {
		baseline = baseline[len(baseline)-d.config.BaselineWindow:]
	}

	mean := mean(baseline)
	std := std(baseline)
	if std == 0 {
		return nil
	}

	zScore := (currentValue - mean) / std
	if math.Abs(zScore) < d.config.ZThreshold {
		return nil
	}

	direction := "above"
	if zScore < 0 {
		direction = "below"
	}

	return &models.DetectedAnomaly{
		MetricID:      metricID,
		PeriodDate:    currentDate,
		Method:        models.MethodZScore,
		Severity:      math.Min(1.0, math.Abs(zScore)/5.0),
		Deviation:     zScore,
		BaselineValue: mean,
		ActualValue:   currentValue,
		Context: map[string]any{
			"z_score":         zScore,
			"mean":            mean,
			"std":             std,
			"baseline_window": len(baseline),
			"direction":       direction,
		},
	}
}

// DetectRateOfChange flags an unusually large period-over-period relative
// change. With fewer than 7 historical changes it falls back to a simple 15%
// threshold; otherwise the current change is standardized against the
// historical change distribution. A zero previous value makes relative
// change undefined and reports nothing.
func (d *StatisticalDetector) DetectRateOfChange(
	metricID string, currentValue, previousValue float64, currentDate time.Time, historicalChanges []float64,
) *models.DetectedAnomaly {
	if previousValue == 0 {
		return nil
	}

	currentChange := (currentValue - previousValue) / math.Abs(previousValue)

	if len(historicalChanges) < 7 {
		if math.Abs(currentChange) <= 0.15 {
			return nil
		}
		return &models.DetectedAnomaly{
			MetricID:      metricID,
			PeriodDate:    currentDate,
			Method:        models.MethodRateOfChange,
			Severity:      math.Min(1.0, math.Abs(currentChange)/0.5),
			Deviation:     currentChange,
			BaselineValue: previousValue,
			ActualValue:   currentValue,
			Context: map[string]any{
				"change_rate": currentChange,
				"method":      "simple_threshold",
			},
		}
	}

	meanChange := mean(historicalChanges)
	stdChange := std(historicalChanges)
	if stdChange == 0 {
		return nil
	}

	zChange := (currentChange - meanChange) / stdChange
	if math.Abs(zChange) < d.config.ROCMultiplier {
		return nil
	}

	return &models.DetectedAnomaly{
		MetricID:      metricID,
		PeriodDate:    currentDate,
		Method:        models.MethodRateOfChange,
		Severity:      math.Min(1.0, math.Abs(zChange)/4.0),
		Deviation:     zChange,
		BaselineValue: previousValue,
		ActualValue:   currentValue,
		Context: map[string]any{
			"change_rate": currentChange,
			"z_change":    zChange,
			"mean_change": meanChange,
			"std_change":  stdChange,
		},
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// std is the population standard deviation.
func std(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}
