package inheritance

import (
	"context"

	"github.com/khaledhikmat/ai-agents/internal/graph"
)

const stmtCountries = `
	MATCH (c:Country)
	RETURN c.name AS name
	ORDER BY name
	LIMIT $limit
`

const stmtCities = `
	MATCH (c:City)
	RETURN c.name AS name
	ORDER BY name
	LIMIT $limit
`

// Countries lists every country node.
func (q *Queries) Countries(ctx context.Context) ([]graph.Row, error) {
	return q.svc.Query(ctx, stmtCountries, map[string]interface{}{"limit": maxRows})
}

// Cities lists every city node.
func (q *Queries) Cities(ctx context.Context) ([]graph.Row, error) {
	return q.svc.Query(ctx, stmtCities, map[string]interface{}{"limit": maxRows})
}

// CountryRelationships enumerates every edge adjacent to one country.
func (q *Queries) CountryRelationships(ctx context.Context, name string) ([]Relationship, error) {
	return q.nodeRelationships(ctx, LabelCountry, name)
}

// CityRelationships enumerates every edge adjacent to one city.
func (q *Queries) CityRelationships(ctx context.Context, name string) ([]Relationship, error) {
	return q.nodeRelationships(ctx, LabelCity, name)
}
