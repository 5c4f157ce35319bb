package events

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/npratt/vtree/internal/tree"
)

const (
	maxNameLength     = 40
	maxMessageLength  = 120
	maxListedIDs      = 5
	truncateIndicator = "..."
)

// Format converts an event to a human-readable string for display.
// Returns empty string for nil or unknown event types.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case *NodeClickEvent:
		return "clicked " + nodeLabel(e.Node)
	case *SelectionChangedEvent:
		return fmt.Sprintf("selected %s (%d total)", nodeLabel(e.Node), len(e.Selected))
	case *ExpandChangedEvent:
		verb := "collapsed"
		if e.Expanded {
			verb = "expanded"
		}
		if e.Affected > 0 {
			return fmt.Sprintf("%s %s, %d affected", verb, nodeLabel(e.Node), e.Affected)
		}
		return verb + " " + nodeLabel(e.Node)
	case *CheckChangedEvent:
		verb := "unchecked"
		if e.Value {
			verb = "checked"
		}
		return fmt.Sprintf("%s %s (%d checked)", verb, nodeLabel(e.Node), len(e.Checked))
	case *TreeReplacedEvent:
		return fmt.Sprintf("loaded %d nodes in %d roots", e.Nodes, e.Roots)
	case *SearchChangedEvent:
		return formatSearch(e)
	case *ViewChangedEvent:
		if e.End < e.Start {
			return "nothing to show"
		}
		return fmt.Sprintf("rows %d-%d of %d", e.Start+1, e.End+1, e.Visible)
	case *BridgeStateChangedEvent:
		return fmt.Sprintf("worker: %s -> %s", e.From, e.To)
	case *ComputeErrorEvent:
		return fmt.Sprintf("compute %s failed: %s", e.OriginalType, Truncate(e.Message, maxMessageLength))
	case *ErrorEvent:
		return formatError(e)
	default:
		return ""
	}
}

// FormatWithTimestamp formats an event with a timestamp prefix.
func FormatWithTimestamp(event Event) string {
	if event == nil {
		return ""
	}
	ts := event.Timestamp().Format("15:04:05")
	detail := Format(event)
	if detail == "" {
		return fmt.Sprintf("[%s] %s", ts, event.Type())
	}
	return fmt.Sprintf("[%s] %s", ts, detail)
}

func nodeLabel(n tree.FlattenedNode) string {
	name := Truncate(n.Name, maxNameLength)
	if name == "" {
		return string(n.ID)
	}
	return fmt.Sprintf("%s (%s)", name, n.ID)
}

func formatSearch(e *SearchChangedEvent) string {
	if e.Query == "" {
		return "search cleared"
	}
	if len(e.Matched) == 0 {
		return fmt.Sprintf("no matches for %q", SafeString(e.Query))
	}
	ids := e.Matched
	suffix := ""
	if len(ids) > maxListedIDs {
		ids = ids[:maxListedIDs]
		suffix = ", " + truncateIndicator
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return fmt.Sprintf("%d matches for %q: %s%s", len(e.Matched), SafeString(e.Query), strings.Join(parts, ", "), suffix)
}

func formatError(e *ErrorEvent) string {
	msg := Truncate(e.Message, maxMessageLength)
	if e.Severity == SeverityWarning {
		return "warning: " + msg
	}
	return "error: " + msg
}

// Truncate shortens s to maxLen bytes, marking the cut with an ellipsis. The
// cut never splits a multi-byte rune.
func Truncate(s string, maxLen int) string {
	s = SafeString(s)
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(truncateIndicator) {
		return truncateIndicator
	}
	cut := maxLen - len(truncateIndicator)
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncateIndicator
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// SafeString sanitizes a string for display by removing control characters
// and collapsing whitespace. Node names come from arbitrary input files and
// pass through here before reaching the terminal.
func SafeString(s string) string {
	s = StripANSI(s)

	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == ' ' || !unicode.IsControl(r) {
			sb.WriteRune(r)
		}
	}

	result := sb.String()
	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}

	return strings.TrimSpace(result)
}
