package credstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/LuckySilver0021/atom/pkg/logging"
)

const (
	// DefaultDebounceInterval is the quiet period after the last file event
	// before OnChange fires. An atomic save produces create+rename bursts.
	DefaultDebounceInterval = 250 * time.Millisecond

	// DefaultPollInterval is used when fsnotify cannot watch the directory.
	DefaultPollInterval = 2 * time.Second
)

// ChangeKind tells a watcher callback what happened to the credential file.
type ChangeKind int

const (
	// Replaced means a new credential was written.
	Replaced ChangeKind = iota
	// Removed means the credential file no longer exists (logout).
	Removed
)

func (k ChangeKind) String() string {
	if k == Removed {
		return "removed"
	}
	return "replaced"
}

type watcher struct {
	path     string
	onChange func(ChangeKind)
	debounce time.Duration
	poll     time.Duration

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// Watch reports changes made to the credential file by other processes until
// ctx is done. fsnotify watches the containing directory; when that is not
// possible the file is polled instead.
func (s *Store) Watch(ctx context.Context, onChange func(ChangeKind)) error {
	w := &watcher{
		path:     s.path,
		onChange: onChange,
		debounce: DefaultDebounceInterval,
		poll:     DefaultPollInterval,
	}
	return w.start(ctx)
}

func (w *watcher) start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &CredentialIOError{Op: "mkdir", Path: dir, Err: err}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn(subsystem, "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges(ctx)
		return nil
	}

	if err := fsw.Add(dir); err != nil {
		logging.Warn(subsystem, "Failed to watch directory %s, falling back to polling: %v", dir, err)
		_ = fsw.Close()
		go w.pollForChanges(ctx)
		return nil
	}

	go w.processEvents(ctx, fsw)

	logging.Debug(subsystem, "Watching %s for credential changes", w.path)
	return nil
}

func (w *watcher) processEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug(subsystem, "Credential file event: %s", event.Op)
			w.triggerDebounced(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.Error(subsystem, err, "fsnotify error")
		}
	}
}

// triggerDebounced fires onChange once the file has been quiet for the
// debounce interval, reporting the state the file is in at that point.
func (w *watcher) triggerDebounced(ctx context.Context) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil || w.onChange == nil {
			return
		}
		w.onChange(w.currentKind())
	})
}

func (w *watcher) stopTimer() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

func (w *watcher) currentKind() ChangeKind {
	if _, err := os.Stat(w.path); err != nil {
		return Removed
	}
	return Replaced
}

type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (w *watcher) stat() fileState {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

func (w *watcher) pollForChanges(ctx context.Context) {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	last := w.stat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := w.stat()
			if cur != last {
				last = cur
				logging.Debug(subsystem, "Credential file change detected via polling")
				if w.onChange != nil {
					w.onChange(w.currentKind())
				}
			}
		}
	}
}
