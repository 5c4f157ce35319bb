package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/testutil"
	"github.com/npratt/vtree/internal/tree"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects replaced trees on a channel.
func recorder() (ReplaceFunc, <-chan []tree.TreeNode) {
	ch := make(chan []tree.TreeNode, 10)
	return func(roots []tree.TreeNode) error {
		ch <- roots
		return nil
	}, ch
}

func startWatcher(t *testing.T, path string, replace ReplaceFunc, router *events.Router) *Watcher {
	t.Helper()
	w := NewWatcher(path, replace, router, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		_ = w.Stop()
		cancel()
	})
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Give fsnotify time to register the directory.
	time.Sleep(50 * time.Millisecond)
	return w
}

func writeTree(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	path := testutil.WriteSampleTree(t)
	replace, _ := recorder()

	w := startWatcher(t, path, replace, nil)
	if !w.Running() {
		t.Error("expected Running() to be true after Start")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if w.Running() {
		t.Error("expected Running() to be false after Stop")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}

func TestWatcher_DoubleStart(t *testing.T) {
	path := testutil.WriteSampleTree(t)
	replace, _ := recorder()
	w := startWatcher(t, path, replace, nil)

	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error on second Start")
	}
}

func TestWatcher_StopBeforeStart(t *testing.T) {
	replace, _ := recorder()
	w := NewWatcher("tree.json", replace, nil, quietLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Start failed: %v", err)
	}
}

func TestWatcher_RejectsStdin(t *testing.T) {
	replace, _ := recorder()
	w := NewWatcher(Stdin, replace, nil, quietLogger())
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error watching stdin")
	}
}

func TestWatcher_FileChange(t *testing.T) {
	path := testutil.WriteSampleTree(t)
	replace, replaced := recorder()
	startWatcher(t, path, replace, nil)

	writeTree(t, path, `[{"id": "solo", "name": "Solo"}]`)

	select {
	case roots := <-replaced:
		if len(roots) != 1 || roots[0].ID != "solo" {
			t.Errorf("replaced with %+v, want single root solo", roots)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcher_UnchangedContentIgnored(t *testing.T) {
	path := testutil.WriteSampleTree(t)
	replace, replaced := recorder()
	startWatcher(t, path, replace, nil)

	writeTree(t, path, testutil.SampleTreeJSON)

	select {
	case <-replaced:
		t.Error("identical content should not be reloaded")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_FileCreatedLater(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.yaml")
	replace, replaced := recorder()
	startWatcher(t, path, replace, nil)

	writeTree(t, path, testutil.SampleTreeYAML)

	select {
	case roots := <-replaced:
		if tree.Size(roots, 0) != 4 {
			t.Errorf("replaced with %d nodes, want 4", tree.Size(roots, 0))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcher_Warnings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		replace ReplaceFunc
		want    string
	}{
		{
			name:    "malformed file",
			content: `[{"id":`,
			replace: func([]tree.TreeNode) error { return nil },
			want:    "reload failed",
		},
		{
			name:    "rejected tree",
			content: `[{"id": "a"}, {"id": "a"}]`,
			replace: func([]tree.TreeNode) error { return errors.New("duplicate id a") },
			want:    "duplicate id a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteSampleTree(t)
			router := events.NewRouter(10)
			defer router.Close()
			ch := router.Subscribe()
			startWatcher(t, path, tt.replace, router)

			writeTree(t, path, tt.content)

			select {
			case e := <-ch:
				ev, ok := e.(*events.ErrorEvent)
				if !ok {
					t.Fatalf("expected *ErrorEvent, got %T", e)
				}
				if ev.Severity != events.SeverityWarning {
					t.Errorf("Severity = %q, want warning", ev.Severity)
				}
				if ev.Source() != events.SourceWatcher {
					t.Errorf("Source = %q, want %q", ev.Source(), events.SourceWatcher)
				}
				if !strings.Contains(ev.Message, tt.want) {
					t.Errorf("Message = %q, want it to contain %q", ev.Message, tt.want)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for warning")
			}
		})
	}
}

func TestWatcher_ContextCancel(t *testing.T) {
	path := testutil.WriteSampleTree(t)
	replace, _ := recorder()
	w := NewWatcher(path, replace, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for w.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if w.Running() {
		t.Error("watcher still running after context cancel")
	}
}
