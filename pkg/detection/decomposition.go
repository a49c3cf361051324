package detection

import (
	"context"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/ontology"
)

// DecompositionDetector runs the detection pipeline over a metric's
// declared components, so a spike hidden inside a stable parent still
// surfaces.
type DecompositionDetector struct {
	registry *ontology.Registry
	pipeline *Pipeline
}

// NewDecompositionDetector creates a new decomposition detector
func NewDecompositionDetector(registry *ontology.Registry, pipeline *Pipeline) *DecompositionDetector {
	return &DecompositionDetector{registry: registry, pipeline: pipeline}
}

// DetectComponentAnomalies checks each declared child of the parent metric
// against its own history, taken from the historical decomposition maps.
// Fired anomalies are annotated with the parent and component ids.
func (d *DecompositionDetector) DetectComponentAnomalies(
	ctx context.Context,
	parentMetricID string,
	currentDecomposition map[string]float64,
	historicalDecompositions []map[string]float64,
	currentDate time.Time,
) []models.DetectedAnomaly {
	anomalies := make([]models.DetectedAnomaly, 0)

	for _, childID := range d.registry.DecompositionChildren(parentMetricID) {
		if len(historicalDecompositions) == 0 {
			continue
		}
		historical := make([]float64, 0, len(historicalDecompositions))
		for _, decomposition := range historicalDecompositions {
			historical = append(historical, decomposition[childID])
		}

		for _, anomaly := range d.pipeline.Detect(ctx, childID, currentDecomposition[childID], currentDate, historical) {
			anomaly.Context["parent_metric"] = parentMetricID
			anomaly.Context["component"] = childID
			anomalies = append(anomalies, anomaly)
		}
	}

	return anomalies
}
