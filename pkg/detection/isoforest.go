package detection

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// ForestConfig contains configuration for the isolation forest model
type ForestConfig struct {
	// Contamination is the expected fraction of outliers in the data.
	Contamination float64 `validate:"required,gt=0,lt=0.5"`
	// Trees is the ensemble size.
	Trees int `validate:"required,min=1"`
	// SampleSize caps the subsample each tree is built from.
	SampleSize int `validate:"required,min=2"`
	// Seed fixes the random source so repeated runs score identically.
	Seed int64
}

// DefaultForestConfig returns the default isolation forest configuration
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Contamination: 0.05,
		Trees:         100,
		SampleSize:    256,
		Seed:          42,
	}
}

// IsolationForest isolates observations by random recursive splitting;
// points that isolate in few splits score as outliers. The ensemble is
// seeded, so detection is deterministic for identical inputs.
type IsolationForest struct {
	config ForestConfig
}

// NewIsolationForest creates a new isolation forest model
func NewIsolationForest(config ForestConfig) *IsolationForest {
	return &IsolationForest{config: config}
}

// Detect fits the forest over the historical series plus the current value
// and reports the current value when it ranks in the contaminated tail.
// Tiny absolute deviations inside two baseline standard deviations are
// suppressed to avoid flagging noise on stable series.
func (f *IsolationForest) Detect(
	metricID string, currentValue float64, currentDate time.Time, historicalValues []float64,
) *models.DetectedAnomaly {
	if len(historicalValues) < 7 {
		return nil
	}

	rows := make([][]float64, 0, len(historicalValues)+1)
	for _, v := range historicalValues {
		rows = append(rows, []float64{v})
	}
	rows = append(rows, []float64{currentValue})

	scores := f.scoreRows(rows)
	current := len(scores) - 1
	if !f.isOutlier(scores, current) {
		return nil
	}

	baselineMean := mean(historicalValues)
	if math.Abs(currentValue-baselineMean) < 1.0 {
		baselineStd := std(historicalValues)
		if baselineStd > 0 && math.Abs(currentValue-baselineMean) < 2*baselineStd {
			return nil
		}
	}

	// Negated so larger magnitude means more anomalous, mirroring the
	// convention of sample-score APIs.
	sampleScore := -scores[current]

	return &models.DetectedAnomaly{
		MetricID:      metricID,
		PeriodDate:    currentDate,
		Method:        models.MethodIsolationForest,
		Severity:      math.Min(1.0, math.Abs(sampleScore)*2),
		Deviation:     currentValue - baselineMean,
		BaselineValue: baselineMean,
		ActualValue:   currentValue,
		Context: map[string]any{
			"isolation_forest_score": sampleScore,
			"model_contamination":    f.config.Contamination,
		},
	}
}

// MetricSeries is one metric's current value plus its history, for
// multivariate detection.
type MetricSeries struct {
	MetricID         string
	Value            float64
	HistoricalValues []float64
}

// DetectMultivariate looks for periods where several metrics move together
// in an unusual way. Series are grouped by history length; each group of at
// least two metrics with at least 7 points is scored jointly.
func (f *IsolationForest) DetectMultivariate(series []MetricSeries, currentDate time.Time) []models.DetectedAnomaly {
	groups := make(map[int][]MetricSeries)
	lengths := make([]int, 0)
	for _, s := range series {
		if len(s.HistoricalValues) < 7 {
			continue
		}
		n := len(s.HistoricalValues)
		if _, ok := groups[n]; !ok {
			lengths = append(lengths, n)
		}
		groups[n] = append(groups[n], s)
	}
	sort.Ints(lengths)

	anomalies := make([]models.DetectedAnomaly, 0)
	for _, n := range lengths {
		group := groups[n]
		if len(group) < 2 {
			continue
		}

		rows := make([][]float64, 0, n+1)
		for i := 0; i < n; i++ {
			row := make([]float64, len(group))
			for j, s := range group {
				row[j] = s.HistoricalValues[i]
			}
			rows = append(rows, row)
		}
		currentRow := make([]float64, len(group))
		for j, s := range group {
			currentRow[j] = s.Value
		}
		rows = append(rows, currentRow)

		scores := f.scoreRows(rows)
		current := len(scores) - 1
		if !f.isOutlier(scores, current) {
			continue
		}

		metricIDs := make([]string, len(group))
		currentValues := make(map[string]any, len(group))
		for j, s := range group {
			metricIDs[j] = s.MetricID
			currentValues[s.MetricID] = s.Value
		}
		anomalyID := "multivariate_" + strings.Join(metricIDs[:min(3, len(metricIDs))], "_")
		if len(metricIDs) > 3 {
			anomalyID += "_etc"
		}

		anomalies = append(anomalies, models.DetectedAnomaly{
			MetricID:   anomalyID,
			PeriodDate: currentDate,
			Method:     models.MethodIsolationForestMultivariate,
			Severity:   math.Min(1.0, math.Abs(-scores[current])*2),
			Context: map[string]any{
				"isolation_forest_score": -scores[current],
				"involved_metrics":       metricIDs,
				"current_values":         currentValues,
			},
		})
	}

	return anomalies
}

// scoreRows returns the standard isolation anomaly score in [0, 1] for
// every row: 2^(-E(pathLength)/c(sampleSize)).
func (f *IsolationForest) scoreRows(rows [][]float64) []float64 {
	rng := rand.New(rand.NewSource(f.config.Seed))
	sampleSize := f.config.SampleSize
	if sampleSize > len(rows) {
		sampleSize = len(rows)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	pathSums := make([]float64, len(rows))
	for t := 0; t < f.config.Trees; t++ {
		sample := rng.Perm(len(rows))[:sampleSize]
		tree := buildTree(rows, sample, 0, maxDepth, rng)
		for i, row := range rows {
			pathSums[i] += pathLength(tree, row, 0)
		}
	}

	norm := avgPathLength(sampleSize)
	scores := make([]float64, len(rows))
	for i, sum := range pathSums {
		avg := sum / float64(f.config.Trees)
		scores[i] = math.Pow(2, -avg/norm)
	}
	return scores
}

// isOutlier reports whether the row at index ranks inside the contaminated
// top fraction of scores.
func (f *IsolationForest) isOutlier(scores []float64, index int) bool {
	outliers := int(math.Ceil(f.config.Contamination * float64(len(scores))))
	if outliers < 1 {
		outliers = 1
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	threshold := sorted[outliers-1]
	return scores[index] >= threshold && scores[index] > 0.5
}

type treeNode struct {
	splitDim   int
	splitValue float64
	left       *treeNode
	right      *treeNode
	size       int
}

func buildTree(rows [][]float64, indices []int, depth, maxDepth int, rng *rand.Rand) *treeNode {
	if len(indices) <= 1 || depth >= maxDepth {
		return &treeNode{size: len(indices)}
	}

	dims := len(rows[indices[0]])
	dim := rng.Intn(dims)

	lo, hi := rows[indices[0]][dim], rows[indices[0]][dim]
	for _, i := range indices[1:] {
		v := rows[i][dim]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return &treeNode{size: len(indices)}
	}

	split := lo + rng.Float64()*(hi-lo)
	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if rows[i][dim] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		splitDim:   dim,
		splitValue: split,
		left:       buildTree(rows, left, depth+1, maxDepth, rng),
		right:      buildTree(rows, right, depth+1, maxDepth, rng),
		size:       len(indices),
	}
}

func pathLength(node *treeNode, row []float64, depth int) float64 {
	if node.left == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if row[node.splitDim] < node.splitValue {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// avgPathLength is the expected path length of an unsuccessful BST search
// over n nodes, the standard normalization term.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	f := float64(n)
	return 2*(math.Log(f-1)+0.5772156649) - 2*(f-1)/f
}
