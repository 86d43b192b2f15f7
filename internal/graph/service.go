package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Service is the capability contract every graph backend variant satisfies.
// Callers depend on this interface, never on backend identity. The one
// documented restriction: the ingestion pipeline and the traversal queries
// are written against the deterministic variant, because they rely on Query
// being a real statement surface.
//
// Operations that a variant cannot fulfill are documented no-ops, not
// errors: Query on the episodic variant returns no rows, the episodic
// operations on the deterministic variant do nothing.
type Service interface {
	// Query runs one parameterized statement and returns the result rows.
	// Parameters are always passed as a separate map, never interpolated.
	Query(ctx context.Context, statement string, params map[string]interface{}) ([]Row, error)

	// AddEpisode ingests one unit of unstructured text for extraction.
	AddEpisode(ctx context.Context, ep Episode) error

	// AddEpisodeAux ingests text with an explicit entity/edge type schema.
	AddEpisodeAux(ctx context.Context, ep Episode, schema *EpisodeSchema) error

	// Search performs semantic search and returns facts with temporal
	// validity windows.
	Search(ctx context.Context, query string, limit int) ([]Fact, error)

	// SearchAux is Search with an explicit search type and custom types.
	SearchAux(ctx context.Context, query, searchType string, customTypes []string) ([]Fact, error)

	// RelatedEntities returns the best-effort neighborhood of a named entity.
	RelatedEntities(ctx context.Context, name string, relationTypes []string, depth int) ([]RelatedEntity, error)

	// EntityTimeline returns facts about an entity within a time window.
	// Nil bounds leave that side open.
	EntityTimeline(ctx context.Context, name string, start, end *time.Time) ([]Fact, error)

	// Statistics returns best-effort graph counts.
	Statistics(ctx context.Context) (map[string]interface{}, error)

	// ClearGraph destroys all graph content. Safe on an empty graph.
	ClearGraph(ctx context.Context) error

	// Close releases the underlying connection. Idempotent.
	Close(ctx context.Context) error

	// Driver exposes the raw connection handle for advanced callers such
	// as the visualization renderer. Escape hatch, not part of the
	// ingestion/query path.
	Driver() neo4j.DriverWithContext
}
