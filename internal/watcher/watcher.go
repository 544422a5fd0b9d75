package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 2 * time.Second

const (
	EventCreated  = "created"
	EventModified = "modified"
	EventRemoved  = "removed"
)

// Event is a change to one export file.
type Event struct {
	Type         string    `json:"type"`
	Path         string    `json:"path"`
	Conversation string    `json:"conversation"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventHandler receives the export changes collected during one quiet
// period, sorted by path.
type EventHandler func(events []Event) error

// ExportWatcher watches an inbox and its conversation directories for export
// files being added, rewritten or removed. Bursts of changes are coalesced
// until no event arrives for the debounce interval.
type ExportWatcher struct {
	watcher      *fsnotify.Watcher
	watchedPaths map[string]bool
	inbox        string
	pattern      string
	debounce     time.Duration
	handlers     []EventHandler
	mu           sync.RWMutex
	stopCh       chan struct{}
	wg           sync.WaitGroup
	logger       *zap.Logger
}

func NewExportWatcher(pattern string, debounce time.Duration, logger *zap.Logger) (*ExportWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &ExportWatcher{
		watcher:      fsWatcher,
		watchedPaths: make(map[string]bool),
		pattern:      pattern,
		debounce:     debounce,
		handlers:     []EventHandler{},
		stopCh:       make(chan struct{}),
		logger:       logger.Named("watcher"),
	}, nil
}

// AddHandler adds an event handler
func (w *ExportWatcher) AddHandler(handler EventHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// WatchInbox watches inbox and every conversation directory inside it.
// Conversation directories created later are picked up automatically.
func (w *ExportWatcher) WatchInbox(inbox string) error {
	if info, err := os.Stat(inbox); err != nil || !info.IsDir() {
		return fmt.Errorf("directory does not exist: %s", inbox)
	}

	w.mu.Lock()
	w.inbox = inbox
	w.mu.Unlock()

	if err := w.addPath(inbox); err != nil {
		return err
	}

	entries, err := os.ReadDir(inbox)
	if err != nil {
		return fmt.Errorf("failed to scan directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.addPath(filepath.Join(inbox, entry.Name())); err != nil {
				w.logger.Warn("cannot watch conversation directory", zap.Error(err))
			}
		}
	}

	return nil
}

func (w *ExportWatcher) addPath(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watchedPaths[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	w.watchedPaths[dir] = true
	return nil
}

// WatchedPaths returns the watched directories, sorted.
func (w *ExportWatcher) WatchedPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.watchedPaths))
	for path := range w.watchedPaths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Start begins watching for file changes
func (w *ExportWatcher) Start() error {
	w.wg.Add(1)
	go w.watchLoop()
	return nil
}

// Stop stops the watcher. Changes still waiting for the debounce interval
// are dropped.
func (w *ExportWatcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()
	return w.watcher.Close()
}

// watchLoop monitors file system events
func (w *ExportWatcher) watchLoop() {
	defer w.wg.Done()

	pending := make(map[string]Event)
	var flush <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev, ok := w.classify(event); ok {
				pending[ev.Path] = ev
				flush = time.After(w.debounce)
			}

		case <-flush:
			flush = nil
			w.notifyHandlers(drain(pending))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// classify turns a raw fs event into an export event, registering new
// conversation directories on the way.
func (w *ExportWatcher) classify(event fsnotify.Event) (Event, bool) {
	w.mu.RLock()
	inbox := w.inbox
	watchedDir := w.watchedPaths[event.Name]
	w.mu.RUnlock()

	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == inbox {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addPath(event.Name); err != nil {
				w.logger.Warn("cannot watch new conversation directory", zap.Error(err))
			}
			return Event{}, false
		}
	}

	if watchedDir && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		w.mu.Lock()
		delete(w.watchedPaths, event.Name)
		w.mu.Unlock()
		return Event{}, false
	}

	if matched, _ := filepath.Match(w.pattern, filepath.Base(event.Name)); !matched {
		return Event{}, false
	}

	ev := Event{
		Path:         event.Name,
		Conversation: filepath.Base(filepath.Dir(event.Name)),
		Timestamp:    time.Now(),
	}
	switch {
	case event.Has(fsnotify.Create):
		ev.Type = EventCreated
	case event.Has(fsnotify.Write):
		ev.Type = EventModified
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		ev.Type = EventRemoved
	default:
		return Event{}, false
	}

	w.logger.Debug("export changed", zap.String("type", ev.Type), zap.String("path", ev.Path))
	return ev, true
}

func drain(pending map[string]Event) []Event {
	events := make([]Event, 0, len(pending))
	for path, ev := range pending {
		events = append(events, ev)
		delete(pending, path)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Path < events[j].Path
	})
	return events
}

// notifyHandlers sends events to all registered handlers
func (w *ExportWatcher) notifyHandlers(events []Event) {
	if len(events) == 0 {
		return
	}

	w.mu.RLock()
	handlers := make([]EventHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(events); err != nil {
			w.logger.Error("handler error", zap.Error(err))
		}
	}
}
