// Package viz renders stored traversal queries as standalone interactive
// HTML graph views. It is a collaborator of the query core: it reaches the
// store through the exposed raw driver, never through the service contract.
package viz

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
)

const (
	defaultColor = "#cccccc"
	defaultShape = "circle"
)

// StyleConfig maps node labels to their display treatment. Labels picks
// the node attribute rendered as the display text; Icons entries are
// passed through to the renderer untouched.
type StyleConfig struct {
	Labels map[string]string                 `json:"labels"`
	Colors map[string]string                 `json:"colors"`
	Shapes map[string]string                 `json:"shapes"`
	Images map[string]string                 `json:"images"`
	Icons  map[string]map[string]interface{} `json:"icons"`
}

// LoadStyle reads <name>.json from the styles directory, falling back to
// default.json when no style is stored for that name.
func LoadStyle(dir, name string) (StyleConfig, error) {
	path := filepath.Join(dir, name+".json")
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(dir, "default.json")
	}

	var style StyleConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return style, apperrors.NewIngestLoadFailed(path, err)
	}
	if err := json.Unmarshal(data, &style); err != nil {
		return style, apperrors.NewIngestLoadFailed(path, err)
	}
	return style, nil
}

// LoadQuery reads the stored statement <name>.cypher from the queries
// directory.
func LoadQuery(dir, name string) (string, error) {
	path := filepath.Join(dir, name+".cypher")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.NewIngestLoadFailed(path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadParameters reads the stored parameter map <name>.json from the
// parameters directory.
func LoadParameters(dir, name string) (map[string]interface{}, error) {
	path := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIngestLoadFailed(path, err)
	}
	params := make(map[string]interface{})
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, apperrors.NewIngestLoadFailed(path, err)
	}
	return params, nil
}
