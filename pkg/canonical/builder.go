// Package canonical merges entity clusters into golden records.
package canonical

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config contains source trust configuration for canonical merging.
type Config struct {
	// SourcePriority ranks sources globally; higher wins. Unknown sources
	// rank 0.
	SourcePriority map[string]int
	// FieldSourcePriority overrides the global ranking per field with an
	// ordered preference list; the first listed source with a non-null
	// value wins.
	FieldSourcePriority map[string][]string
}

// DefaultConfig returns the default source trust configuration: the
// billing system wins on revenue fields, the product database on usage
// fields, CRMs on naming.
func DefaultConfig() Config {
	return Config{
		SourcePriority: map[string]int{
			"stripe":     3,
			"postgres":   2,
			"mysql":      2,
			"hubspot":    1,
			"salesforce": 1,
			"csv":        1,
		},
		FieldSourcePriority: map[string][]string{
			"email":        {"stripe", "hubspot", "postgres"},
			"company_name": {"hubspot", "salesforce", "postgres", "stripe"},
			"mrr":          {"stripe"},
			"plan":         {"stripe"},
			"seats":        {"postgres"},
			"created_at":   {"stripe", "postgres"},
		},
	}
}

// Builder computes the golden record for entity clusters.
type Builder struct {
	logger ectologger.Logger
	config Config
}

// NewBuilder creates a new canonical record builder
func NewBuilder(logger ectologger.Logger, config Config) *Builder {
	return &Builder{logger: logger, config: config}
}

// fieldSource is one source's contribution to a field, in encounter order.
type fieldSource struct {
	priority int
	source   string
	value    any
	order    int
}

// Build merges a cluster's member records into one canonical entity. For
// each observed field the configured per-field source preference wins;
// otherwise the contributing source with the highest global priority wins,
// ties broken by encounter order. Null values and reserved (underscore)
// fields are ignored.
func (b *Builder) Build(ctx context.Context, cluster *models.EntityCluster, recordsByKey map[string]*models.NormalizedRecord) models.CanonicalEntity {
	ctx, span := tracing.StartSpan(ctx, "canonical.Builder.Build")
	defer span.End()

	fieldSources := make(map[string][]fieldSource)
	order := 0

	for _, member := range cluster.Members {
		record := recordsByKey[member.SourceType+":"+member.RecordID]
		if record == nil {
			continue
		}
		priority := b.config.SourcePriority[member.SourceType]
		for fieldName, value := range record.Data {
			if value == nil || strings.HasPrefix(fieldName, "_") {
				continue
			}
			fieldSources[fieldName] = append(fieldSources[fieldName], fieldSource{
				priority: priority,
				source:   member.SourceType,
				value:    value,
				order:    order,
			})
			order++
		}
	}

	fields := make(map[string]any, len(fieldSources))
	for fieldName, sources := range fieldSources {
		fields[fieldName] = b.pickValue(fieldName, sources)
	}

	fields[models.FieldSources] = cluster.Members
	fields[models.FieldSourceCount] = len(cluster.Members)
	fields[models.FieldConfidence] = cluster.AvgConfidence

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"cluster_id":   cluster.ClusterID,
		"member_count": len(cluster.Members),
		"field_count":  len(fieldSources),
	}).Debug("Built canonical record")

	return models.CanonicalEntity{
		Fields:      fields,
		Sources:     cluster.Members,
		SourceCount: len(cluster.Members),
		Confidence:  cluster.AvgConfidence,
	}
}

// Passthrough wraps a single unmatched record as its own entity with full
// confidence.
func (b *Builder) Passthrough(record *models.NormalizedRecord) models.CanonicalEntity {
	fields := make(map[string]any, len(record.Data)+3)
	for fieldName, value := range record.Data {
		if value == nil || strings.HasPrefix(fieldName, "_") {
			continue
		}
		fields[fieldName] = value
	}

	sources := []models.ClusterMember{{SourceType: record.SourceType, RecordID: record.RecordID}}
	fields[models.FieldSources] = sources
	fields[models.FieldSourceCount] = 1
	fields[models.FieldConfidence] = 1.0

	return models.CanonicalEntity{
		Fields:      fields,
		Sources:     sources,
		SourceCount: 1,
		Confidence:  1.0,
	}
}

// pickValue resolves one field from its contributing sources.
func (b *Builder) pickValue(fieldName string, sources []fieldSource) any {
	if preferred, ok := b.config.FieldSourcePriority[fieldName]; ok {
		for _, preferredSource := range preferred {
			for _, s := range sources {
				if s.source == preferredSource {
					return s.value
				}
			}
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].priority != sources[j].priority {
			return sources[i].priority > sources[j].priority
		}
		return sources[i].order < sources[j].order
	})
	return sources[0].value
}
