package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/tree"
)

const (
	// debounceInterval is the time to wait for rapid file changes to settle.
	debounceInterval = 100 * time.Millisecond

	// warningInterval is the minimum time between warning events.
	warningInterval = 5 * time.Second
)

// ReplaceFunc receives each new version of the watched tree. An error is
// reported as a warning and the watch continues.
type ReplaceFunc func(roots []tree.TreeNode) error

// Watcher reloads a tree file whenever it changes on disk and hands the new
// tree to a ReplaceFunc. Saves that leave the content unchanged are ignored.
type Watcher struct {
	path    string
	replace ReplaceFunc
	router  *events.Router
	logger  *slog.Logger

	running     atomic.Bool
	done        chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	lastWarning time.Time
	// last is the content most recently handed to replace.
	last []byte
}

// NewWatcher creates a watcher for path. router may be nil.
func NewWatcher(path string, replace ReplaceFunc, router *events.Router, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:    path,
		replace: replace,
		router:  router,
		logger:  logger.With("component", "watcher"),
	}
}

// Start begins watching in a background goroutine. The current content of
// the file is taken as already loaded. Use Stop to terminate.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return errors.New("watcher already running")
	}
	if w.path == Stdin {
		return errors.New("cannot watch standard input")
	}

	w.last, _ = os.ReadFile(w.path)
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running.Store(true)

	go w.runLoop()
	return nil
}

// Stop terminates the watcher and waits for it to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running.Load() {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	w.cancel()
	<-w.done
	return nil
}

// Running returns whether the watcher is currently active.
func (w *Watcher) Running() bool {
	return w.running.Load()
}

func (w *Watcher) runLoop() {
	defer func() {
		w.running.Store(false)
		close(w.done)
	}()

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.emitWarning(fmt.Sprintf("failed to create file watcher: %v", err))
		return
	}
	defer func() { _ = fsWatcher.Close() }()

	// Watch the directory: editors often save by renaming a new file over
	// the old one, which drops a watch on the file itself.
	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		w.emitWarning(fmt.Sprintf("failed to watch directory %s: %v", dir, err))
		return
	}
	w.logger.Info("watching tree file", "path", w.path)

	var debounceTimer *time.Timer
	var debounceMu sync.Mutex

	triggerReload := func() {
		debounceMu.Lock()
		defer debounceMu.Unlock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(debounceInterval, func() {
			if w.ctx.Err() != nil {
				return
			}
			if err := w.reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
				w.emitWarning(fmt.Sprintf("reload failed: %v", err))
			}
		})
	}

	target := filepath.Base(w.path)
	for {
		select {
		case <-w.ctx.Done():
			debounceMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceMu.Unlock()
			return

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				triggerReload()
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.emitWarning(fmt.Sprintf("file watcher error: %v", err))
		}
	}
}

// reload decodes the file and passes it on unless the content is the same
// as last time.
func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	unchanged := bytes.Equal(data, w.last)
	w.mu.Unlock()
	if unchanged {
		return nil
	}

	roots, err := tree.Decode(data, FormatFor(w.path))
	if err != nil {
		return err
	}
	if err := w.replace(roots); err != nil {
		return err
	}

	w.mu.Lock()
	w.last = data
	w.mu.Unlock()
	w.logger.Debug("tree file reloaded", "path", w.path, "bytes", len(data))
	return nil
}

// emitWarning logs msg and reports it on the router, at most once per
// warningInterval.
func (w *Watcher) emitWarning(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if now.Sub(w.lastWarning) < warningInterval {
		return
	}
	w.lastWarning = now

	w.logger.Warn(msg)
	if w.router == nil {
		return
	}
	w.router.Emit(&events.ErrorEvent{
		BaseEvent: events.NewEvent(events.EventError, events.SourceWatcher),
		Message:   msg,
		Severity:  events.SeverityWarning,
		Context:   map[string]string{"path": w.path},
	})
}
