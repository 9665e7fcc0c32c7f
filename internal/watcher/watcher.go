// Package watcher converts noisy raw filesystem events into a deduplicated,
// debounced stream of change notifications, optionally resolved to the task
// owning the changed path. The watcher never mutates session state. It only
// raises notifications, keeping observation and authority separate.
package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/domain"
)

const defaultQuietPeriod = 500 * time.Millisecond

// Config controls what the watcher observes.
type Config struct {
	ProjectRoot string
	// Ignore patterns: a leading "*" makes the rest a literal suffix match,
	// anything else matches as a plain substring.
	Ignore []string
	// QuietPeriod is the per-path debounce window (default 500ms).
	QuietPeriod time.Duration
}

// Watcher observes a project tree through fsnotify. fsnotify offers no
// recursive watch, so the tree is walked and one watch registered per
// directory; directories created later are picked up from their create
// events. Subdirectories that cannot be watched (permissions, deletion
// races) are skipped, trading partial coverage for not aborting.
type Watcher struct {
	config Config
	logger *log.Logger
	tasks  func() []domain.Task // snapshot of the board for ownership resolution; may be nil

	fsw *fsnotify.Watcher
	out chan domain.FileChange

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool

	doneCh chan struct{}
}

// New creates a watcher. tasks supplies the current board for MatchTask
// resolution; pass nil to emit unresolved changes.
func New(config Config, tasks func() []domain.Task, logger *log.Logger) *Watcher {
	if config.QuietPeriod <= 0 {
		config.QuietPeriod = defaultQuietPeriod
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Watcher{
		config: config,
		logger: logger,
		tasks:  tasks,
		out:    make(chan domain.FileChange, 128),
		timers: make(map[string]*time.Timer),
		doneCh: make(chan struct{}),
	}
}

// Changes returns the debounced notification stream. The channel is closed
// after Stop.
func (w *Watcher) Changes() <-chan domain.FileChange { return w.out }

// Start establishes watches on the project tree and begins processing
// events. Failure to create the watcher itself wraps ErrWatchUnavailable;
// failure to watch individual subtrees only degrades coverage.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", app.ErrWatchUnavailable, err)
	}
	w.fsw = fsw

	if err := w.watchTree(w.config.ProjectRoot); err != nil {
		_ = fsw.Close()
		w.fsw = nil
		return fmt.Errorf("%w: watch %s: %v", app.ErrWatchUnavailable, w.config.ProjectRoot, err)
	}

	go w.loop()
	return nil
}

// watchTree registers a watch on root and every non-ignored subdirectory.
// The root itself must be watchable; everything below is best-effort.
func (w *Watcher) watchTree(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() || path == root {
			return nil
		}
		if Ignored(w.relPath(path), w.config.Ignore) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Printf("Watcher: cannot watch %s: %v (subtree unobserved)", path, err)
			return filepath.SkipDir
		}
		return nil
	})
	return nil
}

// relPath converts an absolute event path to a slash-separated path relative
// to the project root, falling back to the input when it lies outside it.
func (w *Watcher) relPath(path string) string {
	rel, err := filepath.Rel(w.config.ProjectRoot, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// loop processes raw fsnotify events until the watcher is closed.
func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("Watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	var kind domain.ChangeKind
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Rename) != 0:
		kind = domain.ChangeCreated
	case event.Op&fsnotify.Write != 0:
		kind = domain.ChangeModified
	default:
		return
	}

	path := event.Name

	// Ignore evaluation happens before any timer is scheduled, and matches
	// the root-relative path so a pattern token in the project root's own
	// path (a checkout living under a dist/ directory, say) cannot suppress
	// everything beneath it.
	if Ignored(w.relPath(path), w.config.Ignore) {
		return
	}

	// A newly created directory extends the watched tree.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				w.logger.Printf("Watcher: cannot watch new dir %s: %v", path, err)
			}
			return
		}
	}

	w.schedule(path, kind)
}

// schedule resets the per-path quiet-period timer. Only after the quiet
// period elapses with no further events on the path is one coalesced
// notification emitted, bounding event storms from editors and build tools.
func (w *Watcher) schedule(path string, kind domain.ChangeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.config.QuietPeriod, func() {
		w.emit(path, kind)
	})
}

func (w *Watcher) emit(path string, kind domain.ChangeKind) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.mu.Unlock()

	change := domain.FileChange{
		Path:      path,
		RelPath:   w.relPath(path),
		Kind:      kind,
		Timestamp: time.Now(),
	}
	if w.tasks != nil {
		if id, ok := MatchTask(change.RelPath, w.tasks()); ok {
			change.TaskID = id
		}
	}

	// Task resolution above runs without the lock, so Stop may have closed
	// the stream in the meantime. The send happens under the lock, after
	// re-checking stopped: Stop sets the flag before it closes the channel,
	// which makes a send on the closed stream impossible.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.out <- change:
	default:
		w.logger.Printf("Watcher: notification dropped (consumer slow): %s", change.RelPath)
	}
}

// Stop cancels all outstanding debounce timers, closes the underlying
// watcher, and closes the change stream. Safe to call once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	fsw := w.fsw
	w.mu.Unlock()

	if fsw != nil {
		_ = fsw.Close()
		<-w.doneCh
	}
	close(w.out)
}
