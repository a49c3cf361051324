// Package models contains the data types shared across the fern engines.
package models

import "time"

// ChangeKind describes the kind of change a normalized record represents.
type ChangeKind string

const (
	ChangeKindCreate ChangeKind = "create"
	ChangeKindUpdate ChangeKind = "update"
	ChangeKindDelete ChangeKind = "delete"
)

// NormalizedRecord is the record shape produced by the upstream connectors.
// Records are immutable once produced; the engines never mutate them.
type NormalizedRecord struct {
	SourceType   string         `json:"source_type"`
	ConnectionID string         `json:"connection_id"`
	ObjectType   string         `json:"object_type"`
	RecordID     string         `json:"record_id"`
	Data         map[string]any `json:"data"`
	ExtractedAt  time.Time      `json:"extracted_at"`
	ChangeKind   ChangeKind     `json:"change_kind"`
	ContentHash  string         `json:"content_hash"`
}

// Key returns the stable cross-source identity of a record.
func (r *NormalizedRecord) Key() string {
	return r.SourceType + ":" + r.RecordID
}
