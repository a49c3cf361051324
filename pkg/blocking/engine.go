// Package blocking generates bounded candidate pair sets for scoring
// using index-based blocking keys instead of a full cross product.
package blocking

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Strategy is one blocking key: the record fields it reads (first non-null
// alias wins) and the normalizer that produces the index key.
type Strategy struct {
	Name       string   `validate:"required"`
	Fields     []string `validate:"required,min=1"`
	Normalizer string   `validate:"required"`
}

// Config contains configuration for the blocking engine
type Config struct {
	Strategies []Strategy
	// DedupePairs drops candidates already emitted by an earlier strategy.
	// Whether duplicate candidates are useful is a caller decision, so the
	// default keeps them.
	DedupePairs bool
}

// DefaultConfig returns the default blocking configuration: normalized
// email domain and normalized company name keys.
func DefaultConfig() Config {
	return Config{
		Strategies: []Strategy{
			{
				Name:       "email_domain",
				Fields:     []string{"email", "email_address", "owner_email", "contact_email"},
				Normalizer: "ndomain",
			},
			{
				Name:       "company_name",
				Fields:     []string{"name", "company_name", "company", "account_name"},
				Normalizer: "ncompany",
			},
		},
	}
}

// Engine builds per-key record indexes and emits cross-source candidates.
type Engine struct {
	logger ectologger.Logger
	eval   *expressions.Evaluator
	config Config
}

// NewEngine creates a new blocking engine
func NewEngine(logger ectologger.Logger, config Config) *Engine {
	return &Engine{
		logger: logger,
		eval:   expressions.NewEvaluator(),
		config: config,
	}
}

// GenerateCandidates produces the candidate pairs worth scoring between two
// record sets. A candidate is emitted for every cross-side pair sharing a
// non-empty blocking key. Records with no populated key field on either
// side produce no candidates.
func (e *Engine) GenerateCandidates(
	ctx context.Context,
	recordsA []models.NormalizedRecord, sourceA string,
	recordsB []models.NormalizedRecord, sourceB string,
) []models.BlockingCandidate {
	ctx, span := tracing.StartSpan(ctx, "blocking.Engine.GenerateCandidates")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"source_a": sourceA,
		"source_b": sourceB,
		"size_a":   len(recordsA),
		"size_b":   len(recordsB),
	})

	candidates := make([]models.BlockingCandidate, 0)
	seen := make(map[[2]string]bool)

	for _, strategy := range e.config.Strategies {
		indexA := e.buildIndex(recordsA, strategy)
		indexB := e.buildIndex(recordsB, strategy)

		keys := make([]string, 0, len(indexA))
		for key := range indexA {
			if len(indexB[key]) > 0 {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)

		for _, key := range keys {
			for _, idA := range indexA[key] {
				for _, idB := range indexB[key] {
					if e.config.DedupePairs {
						pair := [2]string{sourceA + ":" + idA, sourceB + ":" + idB}
						if seen[pair] {
							continue
						}
						seen[pair] = true
					}
					candidates = append(candidates, models.BlockingCandidate{
						RecordAID:     idA,
						RecordASource: sourceA,
						RecordBID:     idB,
						RecordBSource: sourceB,
						Strategy:      strategy.Name,
					})
				}
			}
		}
	}

	log.WithFields(map[string]any{"candidate_count": len(candidates)}).Debug("Generated blocking candidates")
	return candidates
}

// buildIndex maps normalized blocking keys to record ids for one side.
// Records without a usable key value are left unindexed.
func (e *Engine) buildIndex(records []models.NormalizedRecord, strategy Strategy) map[string][]string {
	index := make(map[string][]string)
	expr := expressions.FirstOf(strategy.Fields...)

	for i := range records {
		value, err := e.eval.EvaluateString(expr, records[i].Data)
		if err != nil || value == nil {
			continue
		}
		key := normalizers.Apply(*value, strategy.Normalizer)
		if key == "" {
			continue
		}
		index[key] = append(index[key], records[i].RecordID)
	}

	return index
}
