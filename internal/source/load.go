// Package source reads tree files and watches them for replacement.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/npratt/vtree/internal/tree"
)

// Stdin is the path that reads the tree from standard input as JSON.
const Stdin = "-"

// FormatFor picks the decoder for path from its extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatFor(path string) tree.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return tree.FormatYAML
	default:
		return tree.FormatJSON
	}
}

// Load reads and decodes the tree at path. The tree is not validated.
func Load(path string) ([]tree.TreeNode, error) {
	if path == Stdin {
		return LoadReader(os.Stdin, tree.FormatJSON)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	roots, err := tree.Decode(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return roots, nil
}

// LoadReader decodes a tree read from r until EOF.
func LoadReader(r io.Reader, format tree.Format) ([]tree.TreeNode, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	roots, err := tree.Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return roots, nil
}
