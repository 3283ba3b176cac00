package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is the quiet period used when none is given.
const DefaultInterval = 100 * time.Millisecond

// IgnoreChecker is used by the watcher to check if a path should be ignored.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// Root is one watched location: a single file, or a directory tree.
type Root struct {
	Path      string // absolute
	Dir       bool
	Recursive bool
	Ignore    IgnoreChecker // optional, directories only
}

// contains reports whether path belongs to the root.
func (r Root) contains(path string) bool {
	if !r.Dir {
		return path == r.Path
	}
	rel, err := filepath.Rel(r.Path, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if !r.Recursive && strings.ContainsRune(rel, filepath.Separator) {
		return false
	}
	return r.Ignore == nil || !r.Ignore.ShouldIgnore(path)
}

// Watcher reports debounced changes under a set of roots. File roots are
// watched through their parent directory so that editors which replace the
// file on save are still seen.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	roots     []Root
	logger    *slog.Logger
}

// NewWatcher registers every root. Directories excluded by a root's ignore
// checker are not watched.
func NewWatcher(roots []Root, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(interval),
		roots:     roots,
		logger:    logger,
	}

	for _, root := range roots {
		if !root.Dir {
			w.add(filepath.Dir(root.Path))
			continue
		}
		if !root.Recursive {
			w.add(root.Path)
			continue
		}
		err = filepath.WalkDir(root.Path, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped
			}
			if !d.IsDir() {
				return nil
			}
			if path != root.Path && root.Ignore != nil && root.Ignore.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			w.add(path)
			return nil
		})
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}

	return w, nil
}

func (w *Watcher) add(dir string) {
	if err := w.fsWatcher.Add(dir); err != nil {
		w.logger.Warn("failed to watch directory", "path", dir, "error", err)
	}
}

// Events returns the channel that receives debounced change batches.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start begins listening for file system events. Call this in a goroutine.
// It runs until the watcher is closed.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.watchNewDir(path)
			return
		}
	}

	if !w.matches(path) {
		return
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.logger.Debug("change detected", "path", path, "op", op.String())
	w.debouncer.Add(path, op)
}

// watchNewDir starts watching a directory created inside a recursive root.
// The directory may already hold files, so it also counts as a change.
func (w *Watcher) watchNewDir(path string) {
	for _, root := range w.roots {
		if !root.Dir || !root.Recursive || !root.contains(path) {
			continue
		}
		if root.Ignore != nil && root.Ignore.ShouldIgnoreDir(path) {
			return
		}
		w.add(path)
		w.debouncer.Add(path, OpCreate)
		return
	}
}

func (w *Watcher) matches(path string) bool {
	for _, root := range w.roots {
		if root.contains(path) {
			return true
		}
	}
	return false
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
