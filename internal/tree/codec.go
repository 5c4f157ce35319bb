package tree

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is an encoding of tree input files.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// document is the wrapped form of an input file: {"treeData": [...]}.
type document struct {
	TreeData []TreeNode `json:"treeData" yaml:"treeData"`
}

// Decode parses tree input. The top level may be a list of roots, a single
// root object, or an object with a treeData list.
func Decode(data []byte, format Format) ([]TreeNode, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	case FormatJSON, "":
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported tree format %q", format)
	}
}

func decodeJSON(data []byte) ([]TreeNode, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var roots []TreeNode
		if err := json.Unmarshal(trimmed, &roots); err != nil {
			return nil, fmt.Errorf("decode json tree: %w", err)
		}
		return roots, nil
	}

	var head map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return nil, fmt.Errorf("decode json tree: %w", err)
	}
	if _, ok := head["treeData"]; ok {
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decode json tree: %w", err)
		}
		return doc.TreeData, nil
	}

	var root TreeNode
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return nil, fmt.Errorf("decode json tree: %w", err)
	}
	return []TreeNode{root}, nil
}

func decodeYAML(data []byte) ([]TreeNode, error) {
	var top yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode yaml tree: %w", err)
	}
	if len(top.Content) == 0 {
		return nil, nil
	}

	body := top.Content[0]
	switch body.Kind {
	case yaml.SequenceNode:
		var roots []TreeNode
		if err := body.Decode(&roots); err != nil {
			return nil, fmt.Errorf("decode yaml tree: %w", err)
		}
		return roots, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(body.Content); i += 2 {
			if body.Content[i].Value == "treeData" {
				var doc document
				if err := body.Decode(&doc); err != nil {
					return nil, fmt.Errorf("decode yaml tree: %w", err)
				}
				return doc.TreeData, nil
			}
		}
		var root TreeNode
		if err := body.Decode(&root); err != nil {
			return nil, fmt.Errorf("decode yaml tree: %w", err)
		}
		return []TreeNode{root}, nil
	default:
		return nil, fmt.Errorf("decode yaml tree: line %d: expected list or mapping", body.Line)
	}
}
