// Package watcher implements the Watcher Pipeline: fsnotify ingress,
// debounce, parent-file resolution, and a single serialized processing
// loop, in the shape grounded on MangleWatcher's event/debounce loop, but
// generalized to configurable extensions, ignore patterns, and the parent
// resolution priority order.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DebounceWindow is how long, counted from the arrival of the last
// dispatched event for a path, further events for that path are dropped.
// Pending events are dispatched on the next one-second tick.
const DebounceWindow = 15 * time.Second

// parentPriority lists the parent-file name fragments to search for, in
// priority order, when resolving a changed file's test target.
var parentPriority = []string{"service", "controller", "repository", "gateway", "module", "guard", "interceptor", "pipe", "filter"}

// Event is a processable change event handed to the processing loop.
type Event struct {
	Path               string
	ResolvedTestTarget string
}

// Handler processes one settled Event. No other event is dispatched until
// it returns.
type Handler func(ctx context.Context, ev Event)

// Watcher subscribes to recursive filesystem notifications under root,
// debounces, resolves parent files, and serializes delivery to Handler.
type Watcher struct {
	root       string
	extensions map[string]bool
	ignore     []string
	handler    Handler
	log        *zap.Logger

	fs *fsnotify.Watcher

	mu          sync.Mutex
	lastEvent   map[string]time.Time
	paused      bool
	processing  map[string]bool // path currently in flight; at most one at a time
}

// New builds a Watcher rooted at root, restricted to extensions (dot-
// prefixed, e.g. ".ts"), skipping any path containing an ignore substring.
func New(root string, extensions, ignore []string, handler Handler, log *zap.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[e] = true
	}

	return &Watcher{
		root:       root,
		extensions: extSet,
		ignore:     ignore,
		handler:    handler,
		log:        log,
		fs:         fs,
		lastEvent:  make(map[string]time.Time),
		processing: make(map[string]bool),
	}, nil
}

// Start walks root adding every directory to the notifier, then begins the
// event loop in a goroutine. It returns once the initial walk completes.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, don't abort the whole walk
		}
		if d.IsDir() {
			if w.isIgnored(path) {
				return filepath.SkipDir
			}
			return w.fs.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.run(ctx)
	return nil
}

// Stop releases the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	return w.fs.Close()
}

// Pause flips the pause gate. While paused, settled events still debounce
// but are not dispatched to the handler until Resume.
func (w *Watcher) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
}

// Resume clears the pause gate.
func (w *Watcher) Resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
}

func (w *Watcher) run(ctx context.Context) {
	debounceTicker := time.NewTicker(1 * time.Second)
	defer debounceTicker.Stop()

	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleRawEvent(ev, pending)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher.fsnotify.error", zap.Error(err))

		case <-debounceTicker.C:
			w.flushSettled(ctx, pending)
		}
	}
}

// handleRawEvent filters to configured extensions/ignore patterns and
// records the event's arrival time for debouncing; it does not dispatch
// directly. An event for p arriving within DebounceWindow of the last
// processed time for p is dropped immediately.
func (w *Watcher) handleRawEvent(ev fsnotify.Event, pending map[string]time.Time) {
	if !w.isCandidate(ev.Name) {
		return
	}

	w.mu.Lock()
	last, seen := w.lastEvent[ev.Name]
	w.mu.Unlock()

	now := time.Now()
	if seen && now.Sub(last) < DebounceWindow {
		w.log.Debug("watcher.event.debounced", zap.String("path", ev.Name))
		return
	}

	pending[ev.Name] = now
}

// flushSettled runs on each debounce tick and dispatches one pending event
// unless an earlier event is still being handled: one event is in flight
// at a time, and the rest stay pending for a later tick.
func (w *Watcher) flushSettled(ctx context.Context, pending map[string]time.Time) {
	w.mu.Lock()
	paused := w.paused
	w.mu.Unlock()
	if paused {
		return
	}

	for path, at := range pending {
		w.mu.Lock()
		busy := len(w.processing) > 0
		w.mu.Unlock()
		if busy {
			return // an event is still in flight; the rest wait for a later tick
		}

		delete(pending, path)
		w.mu.Lock()
		w.lastEvent[path] = at
		w.processing[path] = true
		w.mu.Unlock()

		go func(p string) {
			defer func() {
				w.mu.Lock()
				delete(w.processing, p)
				w.mu.Unlock()
			}()
			w.handler(ctx, Event{Path: p, ResolvedTestTarget: resolveTestTarget(p)})
		}(path)
	}
}

func (w *Watcher) isCandidate(path string) bool {
	if w.isIgnored(path) {
		return false
	}
	ext := filepath.Ext(path)
	if !w.extensions[ext] {
		return false
	}
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".suggested") || strings.Contains(base, ".suggested.") {
		return false
	}
	return true
}

func (w *Watcher) isIgnored(path string) bool {
	for _, pattern := range w.ignore {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// resolveTestTarget implements parent resolution: search the changed
// file's directory for a parent file in priority order; if found, the
// event carries the parent's base name, else the child's own base name.
func resolveTestTarget(path string) string {
	dir := filepath.Dir(path)
	base := baseNameNoExt(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return base
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		candidates = append(candidates, baseNameNoExt(e.Name()))
	}
	sort.Strings(candidates)

	for _, fragment := range parentPriority {
		for _, c := range candidates {
			if c == base {
				continue
			}
			if strings.Contains(strings.ToLower(c), fragment) {
				return stripFragment(c, fragment)
			}
		}
	}
	return base
}

func baseNameNoExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stripFragment removes a matched parent-priority fragment (and its
// leading separator) from a candidate base name, leaving the bare module
// name: "widget.service" + "service" -> "widget".
func stripFragment(candidate, fragment string) string {
	lower := strings.ToLower(candidate)
	idx := strings.Index(lower, fragment)
	if idx <= 0 {
		return candidate
	}
	end := idx
	switch candidate[end-1] {
	case '.', '-', '_':
		end--
	}
	if end == 0 {
		return candidate
	}
	return candidate[:end]
}
