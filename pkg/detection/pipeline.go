package detection

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// OutlierModel is an optional model-based detector run alongside the
// statistical methods. Implementations must be deterministic for identical
// inputs.
type OutlierModel interface {
	Detect(metricID string, currentValue float64, currentDate time.Time, historicalValues []float64) *models.DetectedAnomaly
}

// Pipeline runs every configured detection method over a metric series and
// concatenates whatever fired.
type Pipeline struct {
	logger   ectologger.Logger
	detector *StatisticalDetector
	outlier  OutlierModel
}

// NewPipeline creates a new detection pipeline. outlier may be nil to run
// statistical methods only.
func NewPipeline(logger ectologger.Logger, config Config, outlier OutlierModel) (*Pipeline, error) {
	if _, err := utils.Validate(config); err != nil {
		return nil, err
	}
	return &Pipeline{
		logger:   logger,
		detector: NewStatisticalDetector(config),
		outlier:  outlier,
	}, nil
}

// Detect runs all methods for one metric. The z-score detector always runs;
// rate-of-change needs at least 2 historical points to derive a historical
// change series. Empty history yields an empty result, not an error.
func (p *Pipeline) Detect(
	ctx context.Context, metricID string, currentValue float64, currentDate time.Time, historicalValues []float64,
) []models.DetectedAnomaly {
	ctx, span := tracing.StartSpan(ctx, "detection.Pipeline.Detect")
	defer span.End()

	anomalies := make([]models.DetectedAnomaly, 0)
	if len(historicalValues) == 0 {
		return anomalies
	}

	if anomaly := p.detector.DetectZScore(metricID, currentValue, currentDate, historicalValues); anomaly != nil {
		anomalies = append(anomalies, *anomaly)
	}

	if len(historicalValues) >= 2 {
		previous := historicalValues[len(historicalValues)-1]
		changes := make([]float64, 0, len(historicalValues)-1)
		for i := 1; i < len(historicalValues); i++ {
			prev := historicalValues[i-1]
			if prev == 0 {
				continue
			}
			change := (historicalValues[i] - prev) / abs(prev)
			changes = append(changes, change)
		}
		if anomaly := p.detector.DetectRateOfChange(metricID, currentValue, previous, currentDate, changes); anomaly != nil {
			anomalies = append(anomalies, *anomaly)
		}
	}

	if p.outlier != nil {
		if anomaly := p.outlier.Detect(metricID, currentValue, currentDate, historicalValues); anomaly != nil {
			anomalies = append(anomalies, *anomaly)
		}
	}

	if len(anomalies) > 0 {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"metric_id":     metricID,
			"anomaly_count": len(anomalies),
		}).Info("Detected anomalies")
	}

	return anomalies
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
