// Package clustering groups scored record pairs into entity clusters.
package clustering

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Config contains configuration for the clustering engine
type Config struct {
	// HighConfidenceThreshold is the minimum pair score for a union.
	HighConfidenceThreshold float64 `validate:"gte=0,lte=1"`
	// AutoMergeThreshold separates auto-accepted merges from matches that
	// need manual review. Pairs in [high, auto-merge) are review
	// candidates.
	AutoMergeThreshold float64 `validate:"gte=0,lte=1"`
}

// DefaultConfig returns default clustering configuration
func DefaultConfig() Config {
	return Config{
		HighConfidenceThreshold: 0.50,
		AutoMergeThreshold:      0.70,
	}
}

// Engine clusters scored pairs into entity groups using Union-Find.
type Engine struct {
	logger ectologger.Logger
	config Config
}

// NewEngine creates a new clustering engine
func NewEngine(logger ectologger.Logger, config Config) (*Engine, error) {
	if _, err := utils.Validate(config); err != nil {
		return nil, err
	}
	return &Engine{logger: logger, config: config}, nil
}

// Cluster unions every pair at or above the high-confidence threshold and
// assembles the resulting connected components. Components of size 1 are
// discarded; unmatched records remain independent entities outside
// clustering. Union operations run single-threaded: the union-find
// structure is shared mutable state within the batch.
func (e *Engine) Cluster(ctx context.Context, scoredPairs []models.PairScore) []models.EntityCluster {
	ctx, span := tracing.StartSpan(ctx, "clustering.Engine.Cluster")
	defer span.End()

	uf := NewUnionFind()

	for _, pair := range scoredPairs {
		if pair.TotalScore < e.config.HighConfidenceThreshold {
			continue
		}
		uf.Union(pair.KeyA(), pair.KeyB())
	}

	components := make(map[string][]string)
	for _, key := range uf.Keys() {
		root := uf.Find(key)
		components[root] = append(components[root], key)
	}

	// Pairs are assigned to their final root in a single pass over the
	// input, so each cluster's pair list preserves input order.
	contributing := make(map[string][]models.PairScore)
	for _, pair := range scoredPairs {
		if pair.TotalScore < e.config.HighConfidenceThreshold {
			continue
		}
		root := uf.Find(pair.KeyA())
		contributing[root] = append(contributing[root], pair)
	}

	roots := make([]string, 0, len(components))
	for root := range components {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	clusters := make([]models.EntityCluster, 0, len(components))
	for _, root := range roots {
		memberKeys := components[root]
		if len(memberKeys) < 2 {
			continue
		}
		sort.Strings(memberKeys)

		members := make([]models.ClusterMember, 0, len(memberKeys))
		for _, key := range memberKeys {
			source, recordID, ok := strings.Cut(key, ":")
			if !ok {
				continue
			}
			members = append(members, models.ClusterMember{SourceType: source, RecordID: recordID})
		}

		pairs := contributing[root]
		var maxScore, sum float64
		for _, p := range pairs {
			if p.TotalScore > maxScore {
				maxScore = p.TotalScore
			}
			sum += p.TotalScore
		}
		var avg float64
		if len(pairs) > 0 {
			avg = sum / float64(len(pairs))
		}

		clusters = append(clusters, models.EntityCluster{
			ClusterID:     root,
			Members:       members,
			MaxConfidence: maxScore,
			AvgConfidence: avg,
			PairScores:    pairs,
		})
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"cluster_count": len(clusters),
		"pair_count":    len(scoredPairs),
	}).Info("Clustered scored pairs into entities")

	return clusters
}

// ReviewCandidates returns the pairs that matched but did not clear the
// auto-merge threshold. This is a query over the scored pairs, not part of
// clustering itself.
func (e *Engine) ReviewCandidates(scoredPairs []models.PairScore) []models.PairScore {
	review := make([]models.PairScore, 0)
	for _, pair := range scoredPairs {
		if pair.TotalScore >= e.config.HighConfidenceThreshold && pair.TotalScore < e.config.AutoMergeThreshold {
			review = append(review, pair)
		}
	}
	return review
}
