package types

import (
	"encoding/json"
	"time"
)

// Manifest records the provenance of one ingestion run: which adapter
// produced a dataset version, when, with what parameters, and the
// variable/value labels extracted from the source files. It is written
// once per ingestion run and is immutable afterwards; the catalog treats
// it as the source of truth for a dataset version's semantic metadata.
//
// Manifests are forward-compatible by construction: unknown JSON fields
// are ignored and missing optional fields decode to empty maps rather
// than failing the parse.
type Manifest struct {
	IngestionID    string                       `json:"ingestion_id,omitempty"`
	Timestamp      time.Time                    `json:"timestamp"`
	Adapter        string                       `json:"adapter"`
	DatasetID      string                       `json:"dataset_id"`
	Source         string                       `json:"source"`
	License        string                       `json:"license,omitempty"`
	Parameters     map[string]string            `json:"parameters,omitempty"`
	SourceHashes   map[string]string            `json:"source_hashes,omitempty"`
	Transforms     []string                     `json:"transforms,omitempty"`
	VariableLabels map[string]string            `json:"variable_labels,omitempty"`
	ValueLabels    map[string]map[string]string `json:"value_labels,omitempty"`
}

// Normalize replaces nil optional collections with empty ones so that a
// manifest round-trips field-for-field through JSON regardless of which
// optional fields the encoded form carried.
func (m *Manifest) Normalize() {
	if m.Parameters == nil {
		m.Parameters = map[string]string{}
	}
	if m.SourceHashes == nil {
		m.SourceHashes = map[string]string{}
	}
	if m.Transforms == nil {
		m.Transforms = []string{}
	}
	if m.VariableLabels == nil {
		m.VariableLabels = map[string]string{}
	}
	if m.ValueLabels == nil {
		m.ValueLabels = map[string]map[string]string{}
	}
}

// MarshalManifest encodes a manifest as indented JSON.
func MarshalManifest(m *Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalManifest decodes a manifest from JSON and normalizes its
// optional fields.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m.Normalize()
	return &m, nil
}
