package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a fixed set of files and emits debounced batches of
// changes to them.
type FileWatcher struct {
	paths     map[string]struct{}
	opts      Options
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	errors    chan error
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
}

// NewFileWatcher creates a watcher for paths. Paths need not exist yet;
// their parent directories must. fsnotify is used unless it cannot be
// initialised or opts.ForcePolling is set.
func NewFileWatcher(paths []string, opts Options) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	opts = opts.WithDefaults()

	w := &FileWatcher{
		paths:     make(map[string]struct{}, len(paths)),
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve absolute path: %w", err)
		}
		w.paths[abs] = struct{}{}
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fsWatcher = fsw
		} else {
			slog.Warn("fsnotify_unavailable",
				slog.String("error", err.Error()),
				slog.String("fallback", "polling"))
		}
	}
	return w, nil
}

// Polling reports whether the watcher uses the polling fallback.
func (w *FileWatcher) Polling() bool {
	return w.fsWatcher == nil
}

// Paths returns the watched absolute paths, sorted.
func (w *FileWatcher) Paths() []string {
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Start watches until ctx is cancelled or Stop is called. It blocks.
func (w *FileWatcher) Start(ctx context.Context) error {
	if w.Polling() {
		return w.startPolling(ctx)
	}
	return w.startFsnotify(ctx)
}

func (w *FileWatcher) startFsnotify(ctx context.Context) error {
	dirs := make(map[string]struct{})
	for p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	slog.Debug("watcher_started",
		slog.String("mode", "fsnotify"),
		slog.Int("files", len(w.paths)))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *FileWatcher) startPolling(ctx context.Context) error {
	p := newPoller(w.Paths())

	slog.Debug("watcher_started",
		slog.String("mode", "polling"),
		slog.Int("files", len(w.paths)),
		slog.Duration("interval", w.opts.PollInterval))

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			for _, ev := range p.poll() {
				w.debouncer.Add(ev)
			}
		}
	}
}

// handleFsnotifyEvent converts and filters fsnotify events.
func (w *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if _, ok := w.paths[path]; !ok {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OpDelete
	default:
		// Chmod
		return
	}

	w.debouncer.Add(FileEvent{Path: path, Operation: op, Timestamp: time.Now()})
}

// Events returns the channel of debounced batches.
// The channel is closed when the watcher stops.
func (w *FileWatcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns a channel of non-fatal watcher errors.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

func (w *FileWatcher) emitError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
		slog.Warn("watcher_error_dropped", slog.String("error", err.Error()))
	}
}

// Stop stops the watcher and releases resources.
// Safe to call multiple times.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	close(w.errors)
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
