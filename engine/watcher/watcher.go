package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to a single file.
//
// Notifications are coalesced: Events has capacity one, so any number of changes between two
// reads of the channel produce one notification. Changes are detected through fsnotify on the
// parent directory, which survives editors that save by rename, and by polling the file's
// modification time and size.
type Watcher interface {
	// Events delivers one value per batch of changes. It is never closed.
	Events() <-chan struct{}

	// Path returns the watched file.
	Path() string

	// Close stops watching. Safe to call more than once.
	Close() error
}

type fileStat struct {
	modTime time.Time
	size    int64
	exists  bool
}

// watcher is the unexported implementation of Watcher.
type watcher struct {
	path string

	fs           *fsnotify.Watcher
	pollInterval time.Duration
	events       chan struct{}
	done         chan struct{}
	wg           *sync.WaitGroup
	once         *sync.Once

	last fileStat
	log  *slog.Logger
}

var _ Watcher = &watcher{}

// NewWatcher starts watching path.
//
// Parameters:
//   - path: the file to watch; it must exist
//   - options: variadic list of WatcherBuilderOption functions
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if path cannot be resolved or does not exist
func NewWatcher(path string, options ...WatcherBuilderOption) (Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w := &watcher{
		path:         abs,
		pollInterval: 500 * time.Millisecond,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		wg:           &sync.WaitGroup{},
		once:         &sync.Once{},
		log:          common.ComponentLogger("watcher"),
	}
	for _, opt := range options {
		opt(w)
	}

	w.last = statFile(abs)
	if !w.last.exists {
		return nil, fmt.Errorf("watch %s: %w", path, os.ErrNotExist)
	}

	fs, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := fs.Add(filepath.Dir(abs)); addErr != nil {
			fs.Close()
			fs, err = nil, addErr
		}
	}
	if err != nil {
		w.log.Warn("file notifications unavailable, polling only", "path", abs, "error", err)
	} else {
		w.fs = fs
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcher) Events() <-chan struct{} {
	return w.events
}

func (w *watcher) Path() string {
	return w.path
}

func (w *watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
		if w.fs != nil {
			err = w.fs.Close()
		}
	})
	return err
}

func (w *watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	if w.fs != nil {
		fsEvents = w.fs.Events
		fsErrors = w.fs.Errors
	}

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.last = statFile(w.path)
			w.signal()
		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			w.log.Warn("file notification error", "error", err)
		case <-ticker.C:
			cur := statFile(w.path)
			if cur != w.last {
				w.last = cur
				if cur.exists {
					w.signal()
				}
			}
		}
	}
}

// signal queues a notification unless one is already pending.
func (w *watcher) signal() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

func statFile(path string) fileStat {
	info, err := os.Stat(path)
	if err != nil {
		return fileStat{}
	}
	return fileStat{modTime: info.ModTime(), size: info.Size(), exists: true}
}
