// Package watcher provides real file system watching for source trees,
// built on fsnotify and debounced per SPEC_FULL.md §4.F's live-update
// flow, filtered to a language's extensions. It reports create, modify
// and delete; no move event is emitted: a rename surfaces as a delete of
// the old path, followed by a create of the new one when that lies under
// a watched root.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"scipdex/internal/logging"
)

// EventType represents the type of file system event.
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventMove
)

// String returns a string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventMove:
		return "move"
	default:
		return "unknown"
	}
}

// Event represents a single file system change. PreviousPath is set only
// for EventMove.
type Event struct {
	Type         EventType
	Path         string
	PreviousPath string
	Timestamp    time.Time
}

// ChangeHandler is called with a debounced batch of events for one root.
type ChangeHandler func(root string, events []Event)

// Config contains watcher configuration.
type Config struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounce_ms"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignore_patterns"`
	Extensions     []string `json:"extensions" mapstructure:"extensions"`
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DebounceMs: 300,
		IgnorePatterns: []string{
			"*.log",
			"*.tmp",
			"node_modules/**",
			".git/**",
			"vendor/**",
			"__pycache__/**",
		},
	}
}

// Watcher watches one or more source roots for changes relevant to an
// indexer: files whose extension is in Config.Extensions, outside
// directories whose first relative path segment starts with '.' or
// equals "build".
type Watcher struct {
	config  Config
	logger  *logging.Logger
	handler ChangeHandler

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	roots map[string]struct{}

	debouncers map[string]*BatchDebouncer
	done       chan struct{}
	wg         sync.WaitGroup
}

// New creates a watcher around a fresh fsnotify.Watcher.
func New(config Config, logger *logging.Logger, handler ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		config:     config,
		logger:     logger,
		handler:    handler,
		fsw:        fsw,
		roots:      make(map[string]struct{}),
		debouncers: make(map[string]*BatchDebouncer),
		done:       make(chan struct{}),
	}, nil
}

// Start begins processing fsnotify events in the background.
func (w *Watcher) Start() error {
	if !w.config.Enabled {
		w.logger.Info("file watcher is disabled", nil)
		return nil
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop closes the underlying fsnotify watcher and waits for the event
// loop to exit.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// WatchRoot recursively adds every qualifying directory under root to
// the watch set.
func (w *Watcher) WatchRoot(root string) error {
	w.mu.Lock()
	w.roots[root] = struct{}{}
	w.debouncers[root] = NewBatchDebouncer(time.Duration(w.config.DebounceMs)*time.Millisecond, func(events []Event) {
		if w.handler != nil {
			w.handler(root, events)
		}
	})
	w.mu.Unlock()

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && isIgnoredSegment(rel) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func isIgnoredSegment(rel string) bool {
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return strings.HasPrefix(first, ".") || first == "build"
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleFsEvent(ev fsnotify.Event) {
	root, ok := w.rootFor(ev.Name)
	if !ok || !w.matchesExtension(ev.Name) || w.isIgnoredPath(root, ev.Name) {
		return
	}

	var etype EventType
	switch {
	case ev.Has(fsnotify.Create):
		etype = EventCreate
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(ev.Name)
			return
		}
	case ev.Has(fsnotify.Write):
		etype = EventModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// fsnotify reports a plain Remove for the old half of a move; we
		// don't pair it with a later Create to recover the destination,
		// so a move surfaces here as a delete followed by a create.
		etype = EventDelete
	default:
		return
	}

	w.mu.Lock()
	deb := w.debouncers[root]
	w.mu.Unlock()
	if deb == nil {
		return
	}
	deb.Add(Event{Type: etype, Path: ev.Name, Timestamp: time.Now()})
}

func (w *Watcher) rootFor(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var best string
	for root := range w.roots {
		if strings.HasPrefix(path, root) && len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func (w *Watcher) matchesExtension(path string) bool {
	if len(w.config.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range w.config.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func (w *Watcher) isIgnoredPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if isIgnoredSegment(rel) {
		return true
	}
	return w.IsIgnored(rel)
}

// IsIgnored checks if a path matches the configured ignore globs.
func (w *Watcher) IsIgnored(path string) bool {
	for _, pattern := range w.config.IgnorePatterns {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		if matched {
			return true
		}
		if strings.Contains(pattern, "**") {
			parts := strings.SplitN(pattern, "**", 2)
			if len(parts) == 2 &&
				strings.HasPrefix(path, strings.TrimSuffix(parts[0], "/")) &&
				(parts[1] == "" || strings.HasSuffix(path, strings.TrimPrefix(parts[1], "/"))) {
				return true
			}
		}
	}
	return false
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return map[string]interface{}{
		"enabled":    w.config.Enabled,
		"roots":      len(w.roots),
		"debounceMs": w.config.DebounceMs,
	}
}
