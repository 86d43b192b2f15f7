package viz

import (
	"bytes"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

type visNode struct {
	ID    string                 `json:"id"`
	Label string                 `json:"label"`
	Color string                 `json:"color,omitempty"`
	Shape string                 `json:"shape,omitempty"`
	Image string                 `json:"image,omitempty"`
	Icon  map[string]interface{} `json:"icon,omitempty"`
}

type visEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Title string `json:"title,omitempty"`
}

type pageData struct {
	Title string
	Nodes template.JS
	Edges template.JS
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://unpkg.com/vis-network@9.1.9/standalone/umd/vis-network.min.js"></script>
<style>
html, body { margin: 0; height: 100%; }
#graph { width: 100%; height: 100%; }
</style>
</head>
<body>
<div id="graph"></div>
<script>
const nodes = new vis.DataSet({{.Nodes}});
const edges = new vis.DataSet({{.Edges}});
const container = document.getElementById("graph");
new vis.Network(container, { nodes: nodes, edges: edges }, {
	physics: { stabilization: true },
	interaction: { hover: true }
});
</script>
</body>
</html>
`

var pageTmpl = template.Must(template.New("graph").Parse(pageTemplate))

// Render writes the graph as a standalone interactive HTML page. Node
// treatment comes from the style config keyed by each node's first label;
// relationship types show on hover, not as drawn labels.
func Render(g *Graph, style StyleConfig, outPath string) error {
	nodes := make([]visNode, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		nodes = append(nodes, styleNode(node, style))
	}

	edges := make([]visEdge, 0, len(g.Relationships))
	for _, rel := range g.Relationships {
		edges = append(edges, visEdge{
			From:  rel.StartElementId,
			To:    rel.EndElementId,
			Title: rel.Type,
		})
	}

	nodeJSON, err := json.Marshal(nodes)
	if err != nil {
		return err
	}
	edgeJSON, err := json.Marshal(edges)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = pageTmpl.Execute(&buf, pageData{
		Title: strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath)),
		Nodes: template.JS(nodeJSON),
		Edges: template.JS(edgeJSON),
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return err
	}

	logger.Get().Info("Visualization written",
		zap.String("path", outPath),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return nil
}

func styleNode(node dbtype.Node, style StyleConfig) visNode {
	label := ""
	if len(node.Labels) > 0 {
		label = node.Labels[0]
	}

	vn := visNode{
		ID:    node.ElementId,
		Label: nodeText(node, style.Labels[label]),
		Color: defaultColor,
	}
	if color, ok := style.Colors[label]; ok {
		vn.Color = color
	}

	shape := style.Shapes[label]
	if shape == "" {
		shape = defaultShape
	}
	switch shape {
	case "circle":
		// A dot draws the display text beside the node instead of inside it.
		vn.Shape = "dot"
	case "image":
		if image := style.Images[label]; image != "" {
			vn.Shape = "image"
			vn.Image = image
		} else {
			vn.Shape = "dot"
		}
	case "icon":
		if icon := style.Icons[label]; len(icon) > 0 {
			vn.Shape = "icon"
			vn.Icon = icon
		} else {
			vn.Shape = "dot"
		}
	default:
		vn.Shape = shape
	}
	return vn
}

func nodeText(node dbtype.Node, attr string) string {
	if attr != "" {
		if text, ok := node.Props[attr].(string); ok && text != "" {
			return text
		}
	}
	if name, ok := node.Props["name"].(string); ok && name != "" {
		return name
	}
	return node.ElementId
}
