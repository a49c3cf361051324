// Package pipeline wires the engines into the end-to-end analytics flow:
// resolve records, compute metrics, validate invariants, detect anomalies.
package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/computation"
	"github.com/Ramsey-B/fern/pkg/detection"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/ontology"
	"github.com/Ramsey-B/fern/pkg/resolution"
	"github.com/Ramsey-B/fern/pkg/telemetry"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/validation"
)

// Config contains configuration for the analytics pipeline
type Config struct {
	Resolution  resolution.Config
	Computation computation.Config
	Detection   detection.Config
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	return Config{
		Resolution:  resolution.DefaultConfig(),
		Computation: computation.DefaultConfig(),
		Detection:   detection.DefaultConfig(),
	}
}

// Input is one pipeline run's worth of data for a tenant and period.
type Input struct {
	TenantID   string
	PeriodDate time.Time
	Records    []models.NormalizedRecord
	// Previous maps metric id to its prior-period value.
	Previous map[string]float64
	// Historical maps metric id to its trailing value series, oldest first.
	Historical map[string][]float64
}

// Output is everything one pipeline run produced.
type Output struct {
	Resolution  *resolution.Result
	Metrics     []*models.ComputedMetric
	Validations []models.ValidationResult
	Anomalies   []models.DetectedAnomaly
}

// Pipeline runs the full analytics flow for one tenant and period.
type Pipeline struct {
	logger      ectologger.Logger
	resolution  *resolution.Service
	computation *computation.Engine
	validator   *validation.Validator
	detection   *detection.Pipeline
}

// New creates a new analytics pipeline. outlier may be nil to detect with
// statistical methods only.
func New(logger ectologger.Logger, registry *ontology.Registry, config Config, outlier detection.OutlierModel) (*Pipeline, error) {
	resolutionService, err := resolution.NewService(logger, config.Resolution)
	if err != nil {
		return nil, err
	}
	detectionPipeline, err := detection.NewPipeline(logger, config.Detection, outlier)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:      logger,
		resolution:  resolutionService,
		computation: computation.NewEngine(logger, registry, config.Computation),
		validator:   validation.NewValidator(logger),
		detection:   detectionPipeline,
	}, nil
}

// Run resolves the input records, computes every registry metric over the
// resolved entities, validates the results, and scans each metric for
// anomalies. Metrics without a historical series fall back to a simple
// period-over-period change threshold when a previous value exists.
func (p *Pipeline) Run(ctx context.Context, input Input) *Output {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	start := time.Now()

	resolved := p.resolution.Resolve(ctx, input.TenantID, input.Records)

	entities := make([]map[string]any, 0, len(resolved.Entities))
	for i := range resolved.Entities {
		entities = append(entities, resolved.Entities[i].Fields)
	}

	metrics := p.computation.ComputeAll(ctx, input.TenantID, input.PeriodDate, entities, input.Previous)
	telemetry.RecordComputation(input.TenantID, len(metrics), time.Since(start).Seconds())

	validations := p.validator.ValidateAll(ctx, metrics)
	for _, result := range validations {
		if !result.Passed {
			telemetry.ValidationFailuresTotal.WithLabelValues(result.InvariantName, string(result.Severity)).Inc()
		}
	}

	anomalies := make([]models.DetectedAnomaly, 0)
	for _, metric := range metrics {
		historical := input.Historical[metric.MetricID]
		if len(historical) == 0 {
			if anomaly := changeThresholdAnomaly(metric); anomaly != nil {
				anomalies = append(anomalies, *anomaly)
			}
			continue
		}
		anomalies = append(anomalies, p.detection.Detect(ctx, metric.MetricID, metric.Value, metric.PeriodDate, historical)...)
	}
	for i := range anomalies {
		telemetry.RecordAnomaly(anomalies[i].Method)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":        input.TenantID,
		"entity_count":     len(entities),
		"metric_count":     len(metrics),
		"anomaly_count":    len(anomalies),
		"validation_count": len(validations),
	}).Info("Completed analytics pipeline run")

	return &Output{
		Resolution:  resolved,
		Metrics:     metrics,
		Validations: validations,
		Anomalies:   anomalies,
	}
}

// changeThresholdAnomaly flags a history-less metric whose period-over-period
// change exceeds 15%.
func changeThresholdAnomaly(metric *models.ComputedMetric) *models.DetectedAnomaly {
	if metric.ChangePercent == nil {
		return nil
	}
	changePct := math.Abs(*metric.ChangePercent)
	if changePct <= 15 {
		return nil
	}

	direction := "increase"
	if *metric.ChangePercent < 0 {
		direction = "decrease"
	}

	var baseline float64
	if metric.PreviousValue != nil {
		baseline = *metric.PreviousValue
	}

	return &models.DetectedAnomaly{
		MetricID:      metric.MetricID,
		PeriodDate:    metric.PeriodDate,
		Method:        models.MethodChangeThreshold,
		Severity:      math.Min(1.0, changePct/50),
		Deviation:     *metric.ChangePercent,
		BaselineValue: baseline,
		ActualValue:   metric.Value,
		Context: map[string]any{
			"change_percent": *metric.ChangePercent,
			"direction":      direction,
		},
	}
}
