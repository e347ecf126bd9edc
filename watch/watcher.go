// Package watch re-runs specification resolution whenever the spec roots
// change on disk, so an operator can see which candidate a pipeline run
// would pick up live.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/specdrive/specdrive/sdd"
)

// eventBuffer bounds the outbound event channel. Deliveries beyond it
// are counted and dropped rather than blocking the notify loop.
const eventBuffer = 100

// Config configures spec root watching.
type Config struct {
	// DebounceDelay is how long to wait for more changes before processing.
	DebounceDelay string `yaml:"debounce_delay"`

	// FileExtensions lists file extensions to watch (e.g., [".md", ".html"]).
	FileExtensions []string `yaml:"file_extensions"`

	// ExcludeDirs lists directory names to skip (e.g., [".git", "node_modules"]).
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// DefaultConfig returns default watch configuration.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:  "500ms",
		FileExtensions: []string{".md", ".txt", ".html"},
		ExcludeDirs:    []string{".git", "node_modules", "vendor"},
	}
}

// GetDebounceDelay returns the debounce delay as a duration.
func (c *Config) GetDebounceDelay() time.Duration {
	if c.DebounceDelay == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.DebounceDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// Event represents a spec file change.
type Event struct {
	// Path is the file path relative to the repository root.
	Path string

	// Operation is the type of change.
	Operation Operation

	// AbsPath is the absolute file path.
	AbsPath string
}

// Operation indicates the type of file operation.
type Operation string

// OpCreate, OpModify, and OpDelete enumerate the watch operation types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// SpecWatcher watches the spec roots of a repository and emits change
// events. Events whose content hash matches the last seen hash for the
// file are suppressed, so editor saves that change nothing stay quiet.
type SpecWatcher struct {
	config   Config
	repoRoot string
	roots    []string
	fs       *fsnotify.Watcher
	logger   *slog.Logger

	extensions map[string]bool
	excludes   map[string]bool

	// dirty accumulates notify ops per file until the next flush.
	mu    sync.Mutex
	dirty map[string]fsnotify.Op

	hashMu sync.RWMutex
	hashes map[string]string

	events  chan Event
	dropped atomic.Int64
}

// NewSpecWatcher creates a watcher over the given spec roots. Roots are
// absolute paths; roots that do not exist yet are skipped at start.
func NewSpecWatcher(config Config, repoRoot string, roots []string, logger *slog.Logger) (*SpecWatcher, error) {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	exts := config.FileExtensions
	if len(exts) == 0 {
		exts = DefaultConfig().FileExtensions
	}
	extensions := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}

	dirs := config.ExcludeDirs
	if len(dirs) == 0 {
		dirs = DefaultConfig().ExcludeDirs
	}
	excludes := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		excludes[dir] = true
	}

	return &SpecWatcher{
		config:     config,
		repoRoot:   repoRoot,
		roots:      roots,
		fs:         notifier,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		dirty:      make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		events:     make(chan Event, eventBuffer),
	}, nil
}

// Events returns the channel change events are delivered on. It is
// closed when the watcher stops.
func (w *SpecWatcher) Events() <-chan Event {
	return w.events
}

// Start adds the recursive watches and begins processing events.
func (w *SpecWatcher) Start(ctx context.Context) error {
	watched := 0
	for _, root := range w.roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			w.logger.Debug("Spec root absent, not watching", "root", root)
			continue
		}
		if err := w.watchTree(root); err != nil {
			return err
		}
		watched++
	}
	w.logger.Info("Watching spec roots",
		"watched", watched,
		"configured", len(w.roots))

	go w.run(ctx)
	return nil
}

// Stop closes the underlying notify watcher, which in turn ends the
// processing loop and closes the event channel.
func (w *SpecWatcher) Stop() error {
	return w.fs.Close()
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *SpecWatcher) DroppedEvents() int64 {
	return w.dropped.Load()
}

// watchTree registers root and every directory below it. Excluded and
// hidden directories are skipped, but never the root itself: the
// canonical root lives under the hidden .sdd directory.
func (w *SpecWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("Cannot watch directory", "path", path, "error", err)
			return nil
		}
		w.logger.Debug("Watching directory", "path", path)
		return nil
	})
}

// skipDir reports whether a directory name is excluded or hidden.
func (w *SpecWatcher) skipDir(name string) bool {
	return w.excludes[name] || strings.HasPrefix(name, ".")
}

// run consumes notify events until the context ends or the underlying
// watcher closes. The dirty set is flushed one debounce delay after
// the last observed change.
func (w *SpecWatcher) run(ctx context.Context) {
	defer close(w.events)

	delay := w.config.GetDebounceDelay()
	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.observe(ev) {
				timer.Reset(delay)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// observe filters one notify event and marks the file dirty when it is
// a document we track. Directory creations get a new watch instead so
// spec folders made after start are covered.
func (w *SpecWatcher) observe(ev fsnotify.Event) bool {
	path := ev.Name

	if !w.extensions[strings.ToLower(filepath.Ext(path))] {
		if ev.Has(fsnotify.Create) {
			w.maybeWatchNewDir(path)
		}
		return false
	}

	relPath := w.rel(path)
	for dir := range w.excludes {
		if strings.Contains(relPath, dir+string(filepath.Separator)) {
			return false
		}
	}

	w.mu.Lock()
	w.dirty[path] |= ev.Op
	w.mu.Unlock()

	w.logger.Debug("Spec change detected", "path", relPath, "op", ev.Op.String())
	return true
}

// maybeWatchNewDir adds a watch when a freshly created path is a
// directory we would not have skipped.
func (w *SpecWatcher) maybeWatchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.skipDir(filepath.Base(path)) {
		return
	}
	if err := w.fs.Add(path); err != nil {
		w.logger.Warn("Cannot watch new directory", "path", path, "error", err)
		return
	}
	w.logger.Debug("Watching new directory", "path", path)
}

// flush drains the dirty set and emits one event per surviving file.
func (w *SpecWatcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.dirty) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.dirty
	w.dirty = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	for path, op := range batch {
		if ctx.Err() != nil {
			return
		}
		relPath := w.rel(path)
		operation, emit := w.classify(path, relPath, op)
		if !emit {
			continue
		}
		w.deliver(Event{Path: relPath, Operation: operation, AbsPath: path})
	}
}

// classify turns a dirty entry into one watch operation based on the
// file's end state, suppressing writes whose content digest has not
// changed.
func (w *SpecWatcher) classify(path, relPath string, op fsnotify.Op) (Operation, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.forgetHash(relPath)
			return OpDelete, true
		}
		w.logger.Warn("Cannot read changed file", "path", relPath, "error", err)
		return "", false
	}

	digest := sdd.ContentHash(content)
	previous, seen := w.getHash(relPath)
	if seen && previous == digest {
		return "", false
	}
	w.setHash(relPath, digest)

	if op.Has(fsnotify.Create) || !seen {
		return OpCreate, true
	}
	return OpModify, true
}

// deliver hands an event to the consumer without blocking the notify
// loop. Overflow is counted and dropped.
func (w *SpecWatcher) deliver(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Watch event", "path", event.Path, "op", event.Operation)
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}

// setHash records the content digest for a file.
func (w *SpecWatcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// getHash returns the recorded content digest for a file.
func (w *SpecWatcher) getHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// forgetHash drops the recorded content digest for a file.
func (w *SpecWatcher) forgetHash(path string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	delete(w.hashes, path)
}

// rel converts an absolute path to a repo-root-relative one for display.
func (w *SpecWatcher) rel(path string) string {
	rel, err := filepath.Rel(w.repoRoot, path)
	if err != nil {
		return path
	}
	return rel
}
