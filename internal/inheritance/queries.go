package inheritance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/internal/graph"
	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

// maxRows caps every traversal result set.
const maxRows = 100

// inheritorDepthCap bounds the PARENT_OF closure so a cyclic graph
// terminates instead of hanging. Twenty generations is far beyond any
// real family tree in the source records.
const inheritorDepthCap = 20

var nodeLabels = map[string]bool{
	LabelPerson:   true,
	LabelProperty: true,
	LabelCountry:  true,
	LabelCity:     true,
}

// Attribute allowlists for filtered lookups. Only these names may be
// interpolated into a statement; filter values always travel as
// parameters.
var personAttributes = map[string]bool{
	"name":                    true,
	"residence_country":       true,
	"residence_city":          true,
	"profession":              true,
	"gender":                  true,
	"education":               true,
	"birth_city":              true,
	"birth_country":           true,
	"birth_day":               true,
	"birth_month":             true,
	"birth_year":              true,
	"death_city":              true,
	"death_country":           true,
	"death_day":               true,
	"death_month":             true,
	"death_year":              true,
	"photo":                   true,
	"birth_certificate":       true,
	"death_certificate":       true,
	"inheritance_confinement": true,
}

var propertyAttributes = map[string]bool{
	"name":        true,
	"lot":         true,
	"description": true,
	"location":    true,
	"city":        true,
	"country":     true,
	"area":        true,
	"area_unit":   true,
	"shares":      true,
	"owner":       true,
	"possessed":   true,
	"unsold":      true,
	"organized":   true,
	"effects":     true,
}

// Relationship is one adjacent edge of a named node. Direction is "out"
// when the named node is the edge's start node, "in" otherwise.
type Relationship struct {
	Relationship string                 `json:"relationship"`
	Direction    string                 `json:"direction"`
	Other        string                 `json:"other"`
	OtherLabels  []string               `json:"other_labels"`
	Attributes   map[string]interface{} `json:"attributes"`
}

// Counts is the operator summary of graph size.
type Counts struct {
	Persons    int `json:"persons"`
	Properties int `json:"properties"`
	Countries  int `json:"countries"`
	Cities     int `json:"cities"`
	Edges      int `json:"edges"`
}

const stmtNodeRelationships = `
	MATCH (n:%s {name: $name})-[r]-(other)
	RETURN type(r) AS relationship,
		properties(r) AS attributes,
		CASE WHEN startNode(r) = n THEN 'out' ELSE 'in' END AS direction,
		coalesce(other.name, '') AS other,
		labels(other) AS other_labels
	LIMIT $limit
`

const stmtCountPersons = `MATCH (p:Person) RETURN count(p) AS count`
const stmtCountProperties = `MATCH (p:Property) RETURN count(p) AS count`
const stmtCountCountries = `MATCH (c:Country) RETURN count(c) AS count`
const stmtCountCities = `MATCH (c:City) RETURN count(c) AS count`
const stmtCountEdges = `MATCH ()-[r]->() RETURN count(r) AS count`

// Queries is the fixed traversal set over an ingested graph. Every result
// is capped at maxRows; failures surface to the caller and are never
// fatal to the process.
type Queries struct {
	svc    graph.Service
	logger *zap.Logger
}

func NewQueries(svc graph.Service) *Queries {
	return &Queries{
		svc:    svc,
		logger: logger.Get(),
	}
}

// nodeRelationships enumerates every adjacent edge of one named node,
// any type, any direction.
func (q *Queries) nodeRelationships(ctx context.Context, label, name string) ([]Relationship, error) {
	if !nodeLabels[label] {
		return nil, apperrors.NewValidationBadLabel(label)
	}
	rows, err := q.svc.Query(ctx, fmt.Sprintf(stmtNodeRelationships, label), map[string]interface{}{
		"name":  name,
		"limit": maxRows,
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

// Counts reads the per-label node counts and the total edge count.
func (q *Queries) Counts(ctx context.Context) (*Counts, error) {
	counts := &Counts{}
	for _, c := range []struct {
		stmt string
		dst  *int
	}{
		{stmtCountPersons, &counts.Persons},
		{stmtCountProperties, &counts.Properties},
		{stmtCountCountries, &counts.Countries},
		{stmtCountCities, &counts.Cities},
		{stmtCountEdges, &counts.Edges},
	} {
		rows, err := q.svc.Query(ctx, c.stmt, nil)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			*c.dst = rows[0].Int("count")
		}
	}
	return counts, nil
}

// names extracts the "name" column from a row set.
func names(rows []graph.Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.String("name"))
	}
	return out
}
