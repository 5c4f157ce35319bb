package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/npratt/vtree/internal/tree"
)

// TempDir creates a temporary directory and returns it along with a cleanup function.
// The cleanup function removes the directory and all its contents.
func TempDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "vtree-test-*")
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }
}

// WriteFile writes content to a file in the given directory.
// It creates parent directories as needed and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a file and returns its contents.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// WriteSampleTree writes SampleTreeJSON to tree.json in a fresh temp dir and
// returns its path. The directory is removed when the test ends.
func WriteSampleTree(t *testing.T) string {
	t.Helper()
	dir, cleanup := TempDir(t)
	t.Cleanup(cleanup)
	return WriteFile(t, dir, "tree.json", SampleTreeJSON)
}

// IDs extracts node ids in order.
func IDs(nodes []tree.FlattenedNode) []tree.NodeID {
	out := make([]tree.NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
