package models

// BlockingCandidate is a cross-source record pair worth scoring, tagged with
// the blocking strategy that produced it.
type BlockingCandidate struct {
	RecordAID     string `json:"record_a_id"`
	RecordASource string `json:"record_a_source"`
	RecordBID     string `json:"record_b_id"`
	RecordBSource string `json:"record_b_source"`
	Strategy      string `json:"strategy"`
}

// PairScore is the scored comparison of a candidate pair, with a
// per-dimension breakdown and a human-readable evidence trail.
type PairScore struct {
	RecordAID       string             `json:"record_a_id"`
	RecordASource   string             `json:"record_a_source"`
	RecordBID       string             `json:"record_b_id"`
	RecordBSource   string             `json:"record_b_source"`
	TotalScore      float64            `json:"total_score"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	Evidence        []string           `json:"evidence"`
}

// KeyA returns the source-qualified identity of the pair's first record.
func (p *PairScore) KeyA() string { return p.RecordASource + ":" + p.RecordAID }

// KeyB returns the source-qualified identity of the pair's second record.
func (p *PairScore) KeyB() string { return p.RecordBSource + ":" + p.RecordBID }

// ClusterMember identifies one source record inside an entity cluster.
type ClusterMember struct {
	SourceType string `json:"source_type"`
	RecordID   string `json:"record_id"`
}

// EntityCluster is a group of source records resolved to the same
// real-world entity. Clusters always have at least two members; unmatched
// records are handled outside clustering.
type EntityCluster struct {
	ClusterID     string          `json:"cluster_id"`
	Members       []ClusterMember `json:"members"`
	MaxConfidence float64         `json:"max_confidence"`
	AvgConfidence float64         `json:"avg_confidence"`
	PairScores    []PairScore     `json:"pair_scores"`
}

// Provenance field names attached to canonical entities. Fields with the
// reserved underscore prefix are never merged from source data.
const (
	FieldSources     = "_sources"
	FieldSourceCount = "_source_count"
	FieldConfidence  = "_confidence"
)

// CanonicalEntity is the golden record for one resolved entity: the merged
// field map plus provenance.
type CanonicalEntity struct {
	Fields      map[string]any  `json:"fields"`
	Sources     []ClusterMember `json:"sources"`
	SourceCount int             `json:"source_count"`
	Confidence  float64         `json:"confidence"`
}
