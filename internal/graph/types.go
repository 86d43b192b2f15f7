package graph

import "time"

// ============================================================================
// Graph Service Types
// ============================================================================

// Row is a single result row: values keyed by column name, with the
// column order of the statement's RETURN clause preserved in Keys.
type Row struct {
	Keys   []string               `json:"keys"`
	Values map[string]interface{} `json:"values"`
}

// Get returns the value for a column and whether it was present.
func (r Row) Get(key string) (interface{}, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// Episode is a unit of unstructured or semi-structured text submitted to
// the episodic backend for extraction.
type Episode struct {
	ID                string                 `json:"id"`
	Content           string                 `json:"content"`
	Source            string                 `json:"source"`
	SourceDescription string                 `json:"source_description,omitempty"`
	Timestamp         time.Time              `json:"timestamp"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// EpisodeSchema optionally constrains extraction to explicit entity and
// edge types. A nil schema leaves the engine free to infer.
type EpisodeSchema struct {
	EntityTypes []string `json:"entity_types,omitempty"`
	EdgeTypes   []string `json:"edge_types,omitempty"`
}

// Fact is a search result from the episodic backend. ValidAt/InvalidAt
// are RFC 3339 strings; an empty InvalidAt means the fact is still valid.
type Fact struct {
	UUID           string  `json:"uuid"`
	Name           string  `json:"name,omitempty"`
	Fact           string  `json:"fact"`
	ValidAt        string  `json:"valid_at,omitempty"`
	InvalidAt      string  `json:"invalid_at,omitempty"`
	SourceNodeUUID string  `json:"source_node_uuid,omitempty"`
	Score          float64 `json:"score,omitempty"`
}

// RelatedEntity is one best-effort neighborhood entry derived from search.
type RelatedEntity struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Fact     string `json:"fact,omitempty"`
	UUID     string `json:"uuid,omitempty"`
}
