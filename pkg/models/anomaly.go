package models

import "time"

// Detection method names emitted by the detection pipeline.
const (
	MethodZScore                      = "z_score"
	MethodRateOfChange                = "rate_of_change"
	MethodChangeThreshold             = "change_threshold"
	MethodIsolationForest             = "isolation_forest"
	MethodIsolationForestMultivariate = "isolation_forest_multivariate"
)

// DetectedAnomaly describes one statistically unusual metric observation.
// Severity is always clamped to [0, 1].
type DetectedAnomaly struct {
	MetricID      string         `json:"metric_id"`
	PeriodDate    time.Time      `json:"period_date"`
	Method        string         `json:"detection_method"`
	Severity      float64        `json:"severity"`
	Deviation     float64        `json:"deviation"`
	BaselineValue float64        `json:"baseline_value"`
	ActualValue   float64        `json:"actual_value"`
	Context       map[string]any `json:"context"`
}
