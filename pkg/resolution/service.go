// Package resolution orchestrates the full entity resolution pipeline:
// blocking, pairwise scoring, clustering, and canonical record merging.
package resolution

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/canonical"
	"github.com/Ramsey-B/fern/pkg/clustering"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/scoring"
	"github.com/Ramsey-B/fern/pkg/telemetry"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config contains configuration for the resolution service
type Config struct {
	Blocking   blocking.Config
	Scoring    scoring.Config
	Clustering clustering.Config
	Canonical  canonical.Config
}

// DefaultConfig returns the default resolution configuration
func DefaultConfig() Config {
	return Config{
		Blocking:   blocking.DefaultConfig(),
		Scoring:    scoring.DefaultConfig(),
		Clustering: clustering.DefaultConfig(),
		Canonical:  canonical.DefaultConfig(),
	}
}

// Result is the outcome of one resolution run.
type Result struct {
	RunID       string                   `json:"run_id"`
	Entities    []models.CanonicalEntity `json:"entities"`
	Clusters    []models.EntityCluster   `json:"clusters"`
	SourceCount int                      `json:"source_count"`
}

// Service resolves records from multiple sources into canonical entities.
type Service struct {
	logger     ectologger.Logger
	blocking   *blocking.Engine
	scoring    *scoring.Engine
	clustering *clustering.Engine
	canonical  *canonical.Builder
}

// NewService creates a new resolution service
func NewService(logger ectologger.Logger, config Config) (*Service, error) {
	scoringEngine, err := scoring.NewEngine(logger, config.Scoring)
	if err != nil {
		return nil, err
	}
	clusteringEngine, err := clustering.NewEngine(logger, config.Clustering)
	if err != nil {
		return nil, err
	}

	return &Service{
		logger:     logger,
		blocking:   blocking.NewEngine(logger, config.Blocking),
		scoring:    scoringEngine,
		clustering: clusteringEngine,
		canonical:  canonical.NewBuilder(logger, config.Canonical),
	}, nil
}

// Resolve matches records across sources and returns one canonical entity
// per cluster plus a pass-through entity per unmatched record. With fewer
// than two sources there is nothing to match and every record passes
// through.
func (s *Service) Resolve(ctx context.Context, tenantID string, records []models.NormalizedRecord) *Result {
	ctx, span := tracing.StartSpan(ctx, "resolution.Service.Resolve")
	defer span.End()

	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":       runID,
		"tenant_id":    tenantID,
		"record_count": len(records),
	})

	sourceOrder := make([]string, 0)
	bySource := make(map[string][]models.NormalizedRecord)
	recordsByKey := make(map[string]*models.NormalizedRecord, len(records))
	for i := range records {
		record := &records[i]
		if _, ok := bySource[record.SourceType]; !ok {
			sourceOrder = append(sourceOrder, record.SourceType)
		}
		bySource[record.SourceType] = append(bySource[record.SourceType], *record)
		recordsByKey[record.Key()] = record
	}

	result := &Result{RunID: runID, SourceCount: len(sourceOrder)}

	if len(sourceOrder) < 2 {
		for i := range records {
			result.Entities = append(result.Entities, s.canonical.Passthrough(&records[i]))
		}
		log.WithFields(map[string]any{"entity_count": len(result.Entities)}).Info("Resolved single-source records as pass-through entities")
		telemetry.RecordResolutionRun(tenantID, "passthrough", time.Since(start).Seconds())
		return result
	}

	candidates := make([]models.BlockingCandidate, 0)
	for i := 0; i < len(sourceOrder); i++ {
		for j := i + 1; j < len(sourceOrder); j++ {
			pairCandidates := s.blocking.GenerateCandidates(ctx,
				bySource[sourceOrder[i]], sourceOrder[i],
				bySource[sourceOrder[j]], sourceOrder[j],
			)
			candidates = append(candidates, pairCandidates...)
		}
	}
	for i := range candidates {
		telemetry.BlockingCandidatesTotal.WithLabelValues(candidates[i].Strategy).Inc()
	}

	scored := s.scoring.ScoreCandidates(ctx, candidates, recordsByKey, s.scoring.Threshold())
	telemetry.ScoredPairsTotal.WithLabelValues("kept").Add(float64(len(scored)))
	telemetry.ScoredPairsTotal.WithLabelValues("dropped").Add(float64(len(candidates) - len(scored)))

	clusters := s.clustering.Cluster(ctx, scored)
	telemetry.ClustersFormed.Add(float64(len(clusters)))
	result.Clusters = clusters

	matched := make(map[string]bool)
	for i := range clusters {
		result.Entities = append(result.Entities, s.canonical.Build(ctx, &clusters[i], recordsByKey))
		for _, member := range clusters[i].Members {
			matched[member.SourceType+":"+member.RecordID] = true
		}
	}

	for i := range records {
		if !matched[records[i].Key()] {
			result.Entities = append(result.Entities, s.canonical.Passthrough(&records[i]))
		}
	}

	log.WithFields(map[string]any{
		"source_count":    len(sourceOrder),
		"candidate_count": len(candidates),
		"scored_count":    len(scored),
		"cluster_count":   len(clusters),
		"entity_count":    len(result.Entities),
	}).Info("Resolved entities")
	telemetry.RecordResolutionRun(tenantID, "resolved", time.Since(start).Seconds())

	return result
}

// ReviewCandidates returns scored pairs strong enough to surface for manual
// review but below the auto-merge bar.
func (s *Service) ReviewCandidates(scored []models.PairScore) []models.PairScore {
	return s.clustering.ReviewCandidates(scored)
}
