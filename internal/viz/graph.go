package viz

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/khaledhikmat/ai-agents/internal/graph"
)

// Graph is a deduplicated set of nodes and relationships collected from a
// traversal result.
type Graph struct {
	Nodes         []dbtype.Node
	Relationships []dbtype.Relationship
}

// Collect runs the statement against the raw driver and gathers every
// node and relationship appearing anywhere in the result, including
// inside paths and lists.
func Collect(ctx context.Context, driver neo4j.DriverWithContext, statement string, params map[string]interface{}) (*Graph, error) {
	rows, err := graph.Execute(ctx, driver, statement, params)
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

// FromRows walks result rows and extracts graph elements, deduplicated by
// element id.
func FromRows(rows []graph.Row) *Graph {
	g := &Graph{}
	seenNodes := make(map[string]bool)
	seenRels := make(map[string]bool)
	for _, row := range rows {
		for _, key := range row.Keys {
			g.add(seenNodes, seenRels, row.Values[key])
		}
	}
	return g
}

func (g *Graph) add(seenNodes, seenRels map[string]bool, value interface{}) {
	switch v := value.(type) {
	case dbtype.Node:
		if !seenNodes[v.ElementId] {
			seenNodes[v.ElementId] = true
			g.Nodes = append(g.Nodes, v)
		}
	case dbtype.Relationship:
		if !seenRels[v.ElementId] {
			seenRels[v.ElementId] = true
			g.Relationships = append(g.Relationships, v)
		}
	case dbtype.Path:
		for _, node := range v.Nodes {
			g.add(seenNodes, seenRels, node)
		}
		for _, rel := range v.Relationships {
			g.add(seenNodes, seenRels, rel)
		}
	case []interface{}:
		for _, item := range v {
			g.add(seenNodes, seenRels, item)
		}
	}
}
