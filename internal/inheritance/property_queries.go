package inheritance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/internal/graph"
	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
)

const stmtProperties = `
	MATCH (p:Property)
	RETURN p.name AS name,
		p.city AS city,
		p.country AS country,
		p.area AS area,
		p.area_unit AS area_unit,
		p.shares AS shares,
		p.owner AS owner
	ORDER BY p.name
	LIMIT $limit
`

const stmtPropertiesByAttribute = `
	MATCH (p:Property)
	WHERE p.%s = $value
	RETURN p.name AS name,
		p.city AS city,
		p.country AS country,
		p.area AS area,
		p.area_unit AS area_unit,
		p.shares AS shares,
		p.owner AS owner
	ORDER BY p.name
	LIMIT $limit
`

const stmtPropertyDetails = `
	MATCH (p:Property {name: $name})
	RETURN properties(p) AS attributes
`

// Location queries go through LOCATED_IN edges rather than the stored
// city/country attributes, so they only see properties whose place node
// actually exists in the graph.
const stmtPropertiesInCountry = `
	MATCH (p:Property)-[:LOCATED_IN]->(:Country {name: $country})
	RETURN p.name AS name,
		p.city AS city,
		p.country AS country,
		p.area AS area,
		p.area_unit AS area_unit,
		p.shares AS shares,
		p.owner AS owner
	ORDER BY p.name
	LIMIT $limit
`

const stmtPropertiesInCity = `
	MATCH (p:Property)-[:LOCATED_IN]->(:City {name: $city})
	RETURN p.name AS name,
		p.city AS city,
		p.country AS country,
		p.area AS area,
		p.area_unit AS area_unit,
		p.shares AS shares,
		p.owner AS owner
	ORDER BY p.name
	LIMIT $limit
`

const stmtPropertyRelationshipsInCountry = `
	MATCH (p:Property {name: $name})-[:LOCATED_IN]->(:Country {name: $country})
	MATCH (p)-[r]-(other)
	RETURN type(r) AS relationship,
		properties(r) AS attributes,
		CASE WHEN startNode(r) = p THEN 'out' ELSE 'in' END AS direction,
		coalesce(other.name, '') AS other,
		labels(other) AS other_labels
	LIMIT $limit
`

// Properties lists every property node with its key attributes.
func (q *Queries) Properties(ctx context.Context) ([]graph.Row, error) {
	return q.svc.Query(ctx, stmtProperties, map[string]interface{}{"limit": maxRows})
}

// PropertiesByAttribute lists properties whose named attribute equals the
// given value. The attribute must be allowlisted; the value is a parameter.
func (q *Queries) PropertiesByAttribute(ctx context.Context, attribute string, value interface{}) ([]graph.Row, error) {
	if !propertyAttributes[attribute] {
		q.logger.Warn("Rejected property filter attribute", zap.String("attribute", attribute))
		return nil, apperrors.NewValidationBadAttribute(attribute)
	}
	return q.svc.Query(ctx, fmt.Sprintf(stmtPropertiesByAttribute, attribute), map[string]interface{}{
		"value": value,
		"limit": maxRows,
	})
}

// PropertyDetails returns the full attribute map of one property.
func (q *Queries) PropertyDetails(ctx context.Context, name string) (map[string]interface{}, error) {
	rows, err := q.svc.Query(ctx, stmtPropertyDetails, map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewGraphNodeNotFound(LabelProperty, name)
	}
	return rows[0].Map("attributes"), nil
}

// PropertyRelationships enumerates every edge adjacent to one property.
func (q *Queries) PropertyRelationships(ctx context.Context, name string) ([]Relationship, error) {
	return q.nodeRelationships(ctx, LabelProperty, name)
}

// PropertyRelationshipsInCountry enumerates the edges of one property only
// when that property is located in the given country; otherwise empty.
func (q *Queries) PropertyRelationshipsInCountry(ctx context.Context, name, country string) ([]Relationship, error) {
	rows, err := q.svc.Query(ctx, stmtPropertyRelationshipsInCountry, map[string]interface{}{
		"name":    name,
		"country": country,
		"limit":   maxRows,
	})
	if err != nil {
		return nil, err
	}
	rels := make([]Relationship, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, Relationship{
			Relationship: row.String("relationship"),
			Direction:    row.String("direction"),
			Other:        row.String("other"),
			OtherLabels:  row.StringSlice("other_labels"),
			Attributes:   row.Map("attributes"),
		})
	}
	return rels, nil
}

// PropertiesInCountry lists properties located in the named country.
func (q *Queries) PropertiesInCountry(ctx context.Context, country string) ([]graph.Row, error) {
	return q.svc.Query(ctx, stmtPropertiesInCountry, map[string]interface{}{
		"country": country,
		"limit":   maxRows,
	})
}

// PropertiesInCity lists properties located in the named city.
func (q *Queries) PropertiesInCity(ctx context.Context, city string) ([]graph.Row, error) {
	return q.svc.Query(ctx, stmtPropertiesInCity, map[string]interface{}{
		"city":  city,
		"limit": maxRows,
	})
}
