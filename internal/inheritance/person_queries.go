package inheritance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/internal/graph"
	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
)

const stmtPersons = `
	MATCH (p:Person)
	RETURN p.name AS name,
		p.gender AS gender,
		p.profession AS profession,
		p.residence_city AS residence_city,
		p.residence_country AS residence_country
	ORDER BY p.name
	LIMIT $limit
`

const stmtPersonsByAttribute = `
	MATCH (p:Person)
	WHERE p.%s = $value
	RETURN p.name AS name,
		p.gender AS gender,
		p.profession AS profession,
		p.residence_city AS residence_city,
		p.residence_country AS residence_country
	ORDER BY p.name
	LIMIT $limit
`

const stmtPersonDetails = `
	MATCH (p:Person {name: $name})
	RETURN properties(p) AS attributes
`

const stmtPersonChildren = `
	MATCH (:Person {name: $name})-[:PARENT_OF]->(c:Person)
	RETURN DISTINCT c.name AS name
	ORDER BY name
	LIMIT $limit
`

const stmtPersonGrandChildren = `
	MATCH (:Person {name: $name})-[:PARENT_OF]->(:Person)-[:PARENT_OF]->(g:Person)
	RETURN DISTINCT g.name AS name
	ORDER BY name
	LIMIT $limit
`

const stmtPersonSpouses = `
	MATCH (:Person {name: $name})-[:SPOUSE_OF]-(s:Person)
	RETURN DISTINCT s.name AS name
	ORDER BY name
	LIMIT $limit
`

// Variable-length bounds cannot be parameterized, so the depth cap is
// baked into the statement text.
var stmtPersonInheritors = fmt.Sprintf(`
	MATCH (:Person {name: $name})-[:PARENT_OF*1..%d]->(d:Person)
	RETURN DISTINCT d.name AS name
	ORDER BY name
	LIMIT $limit
`, inheritorDepthCap)

// Persons lists every person node with its key attributes.
func (q *Queries) Persons(ctx context.Context) ([]graph.Row, error) {
	return q.svc.Query(ctx, stmtPersons, map[string]interface{}{"limit": maxRows})
}

// PersonsByAttribute lists persons whose named attribute equals the given
// value. The attribute must be allowlisted; the value is a parameter.
func (q *Queries) PersonsByAttribute(ctx context.Context, attribute string, value interface{}) ([]graph.Row, error) {
	if !personAttributes[attribute] {
		q.logger.Warn("Rejected person filter attribute", zap.String("attribute", attribute))
		return nil, apperrors.NewValidationBadAttribute(attribute)
	}
	return q.svc.Query(ctx, fmt.Sprintf(stmtPersonsByAttribute, attribute), map[string]interface{}{
		"value": value,
		"limit": maxRows,
	})
}

// PersonDetails returns the full attribute map of one person.
func (q *Queries) PersonDetails(ctx context.Context, name string) (map[string]interface{}, error) {
	rows, err := q.svc.Query(ctx, stmtPersonDetails, map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewGraphNodeNotFound(LabelPerson, name)
	}
	return rows[0].Map("attributes"), nil
}

// PersonChildren returns the names one PARENT_OF hop down.
func (q *Queries) PersonChildren(ctx context.Context, name string) ([]string, error) {
	rows, err := q.svc.Query(ctx, stmtPersonChildren, map[string]interface{}{
		"name":  name,
		"limit": maxRows,
	})
	if err != nil {
		return nil, err
	}
	return names(rows), nil
}

// PersonGrandChildren returns the names exactly two PARENT_OF hops down.
func (q *Queries) PersonGrandChildren(ctx context.Context, name string) ([]string, error) {
	rows, err := q.svc.Query(ctx, stmtPersonGrandChildren, map[string]interface{}{
		"name":  name,
		"limit": maxRows,
	})
	if err != nil {
		return nil, err
	}
	return names(rows), nil
}

// PersonSpouses returns spouse names, either edge direction.
func (q *Queries) PersonSpouses(ctx context.Context, name string) ([]string, error) {
	rows, err := q.svc.Query(ctx, stmtPersonSpouses, map[string]interface{}{
		"name":  name,
		"limit": maxRows,
	})
	if err != nil {
		return nil, err
	}
	return names(rows), nil
}

// PersonInheritors returns every descendant reachable through PARENT_OF,
// children and grandchildren included, down to the depth cap.
func (q *Queries) PersonInheritors(ctx context.Context, name string) ([]string, error) {
	rows, err := q.svc.Query(ctx, stmtPersonInheritors, map[string]interface{}{
		"name":  name,
		"limit": maxRows,
	})
	if err != nil {
		return nil, err
	}
	return names(rows), nil
}

// PersonRelationships enumerates every edge adjacent to one person.
func (q *Queries) PersonRelationships(ctx context.Context, name string) ([]Relationship, error) {
	return q.nodeRelationships(ctx, LabelPerson, name)
}
