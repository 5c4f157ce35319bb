package events

import (
	"strings"
	"testing"
	"time"

	"github.com/npratt/vtree/internal/tree"
)

func TestFormat(t *testing.T) {
	node := tree.FlattenedNode{ID: "3", Name: "Platform"}

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"nil", nil, ""},
		{"click", &NodeClickEvent{Node: node}, "clicked Platform (3)"},
		{"selection", &SelectionChangedEvent{Node: node, Selected: []tree.NodeID{"1", "3"}}, "selected Platform (3) (2 total)"},
		{"expand", &ExpandChangedEvent{Node: node, Expanded: true}, "expanded Platform (3)"},
		{"collapse", &ExpandChangedEvent{Node: node}, "collapsed Platform (3)"},
		{"expand with affected", &ExpandChangedEvent{Node: node, Expanded: true, Affected: 2}, "expanded Platform (3), 2 affected"},
		{"check", &CheckChangedEvent{Node: node, Value: true, Checked: []tree.NodeID{"3"}}, "checked Platform (3) (1 checked)"},
		{"tree", &TreeReplacedEvent{Nodes: 4, Roots: 1}, "loaded 4 nodes in 1 roots"},
		{"search cleared", &SearchChangedEvent{}, "search cleared"},
		{"search none", &SearchChangedEvent{Query: "zz"}, `no matches for "zz"`},
		{"search hits", &SearchChangedEvent{Query: "a", Matched: []tree.NodeID{"1", "2"}}, `2 matches for "a": 1, 2`},
		{"view", &ViewChangedEvent{Start: 0, End: 9, Visible: 40}, "rows 1-10 of 40"},
		{"view empty", &ViewChangedEvent{Start: 0, End: -1}, "nothing to show"},
		{"bridge", &BridgeStateChangedEvent{From: "initializing", To: "ready"}, "worker: initializing -> ready"},
		{"compute", &ComputeErrorEvent{OriginalType: "search", Message: "boom"}, "compute search failed: boom"},
		{"warning", &ErrorEvent{Message: "bad file", Severity: SeverityWarning}, "warning: bad file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.event); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSearchListsFirstIDs(t *testing.T) {
	e := &SearchChangedEvent{Query: "x", Matched: []tree.NodeID{"1", "2", "3", "4", "5", "6", "7"}}
	got := Format(e)
	if !strings.HasSuffix(got, "1, 2, 3, 4, 5, ...") {
		t.Errorf("unexpected format %q", got)
	}
}

func TestFormatWithTimestamp(t *testing.T) {
	e := &TreeReplacedEvent{BaseEvent: BaseEvent{EventType: EventTreeReplaced, Time: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}, Nodes: 1, Roots: 1}
	if got := FormatWithTimestamp(e); got != "[10:30:00] loaded 1 nodes in 1 roots" {
		t.Errorf("got %q", got)
	}
}

func TestSafeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"two\nlines", "two lines"},
		{"tab\there", "tabhere"},
		{"  many   spaces  ", "many spaces"},
	}
	for _, tt := range tests {
		if got := SafeString(tt.in); got != tt.want {
			t.Errorf("SafeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("abcdefghij", 8); got != "abcde..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("abcdef", 2); got != "..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("ééééé", 6); got != "é..." {
		t.Errorf("rune boundary: got %q", got)
	}
}
