package watcher

import "time"

// WatcherBuilderOption is a functional option used to configure a Watcher during construction.
type WatcherBuilderOption func(*watcher)

// WithPollInterval sets how often the file's modification time and size are checked.
//
// Parameters:
//   - d: the poll interval, ignored if not positive
//
// Returns:
//   - WatcherBuilderOption: a function that sets the poll interval
func WithPollInterval(d time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}
