package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/tree"
	"github.com/npratt/vtree/internal/view"
)

// writeNodes prints one indented line per node: name, id and path key.
func writeNodes(w io.Writer, nodes []tree.FlattenedNode) error {
	bw := bufio.NewWriter(w)
	for _, n := range nodes {
		_, _ = fmt.Fprintf(bw, "%s%s\t%s\t%s\n",
			strings.Repeat("  ", n.Level), events.SafeString(n.Name), n.ID, n.PathKey)
	}
	return bw.Flush()
}

// writeSlice prints the window header followed by the rendered rows.
func writeSlice(w io.Writer, s view.Slice) error {
	if s.EndIndex < s.StartIndex {
		_, err := fmt.Fprintf(w, "# no rows (%d visible)\n", len(s.VisibleNodes))
		return err
	}
	if _, err := fmt.Fprintf(w, "# rows %d-%d of %d, offset %g, height %g\n",
		s.StartIndex, s.EndIndex, len(s.VisibleNodes), s.OffsetY, s.TotalHeight); err != nil {
		return err
	}
	return writeNodes(w, s.RenderNodes)
}

// writeStructured encodes v as indented JSON or as YAML. YAML goes through
// the JSON encoding so both formats share field names.
func writeStructured(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if format == FormatJSON {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("convert output: %w", err)
	}
	restyle(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}

// restyle drops the flow collections and quoting that JSON input carries.
func restyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		restyle(c)
	}
}
