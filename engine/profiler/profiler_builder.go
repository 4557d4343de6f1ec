package profiler

import "time"

// ProfilerBuilderOption is a functional option used to configure a Profiler during construction.
type ProfilerBuilderOption func(*Profiler)

// WithRateWindow sets how many frames are averaged per frame rate update.
//
// Parameters:
//   - frames: the window length, ignored if not positive
//
// Returns:
//   - ProfilerBuilderOption: a function that sets the window
func WithRateWindow(frames int) ProfilerBuilderOption {
	return func(p *Profiler) {
		if frames > 0 {
			p.rateWindow = frames
		}
	}
}

// WithStatsInterval sets how often memory statistics are logged. Zero disables them.
func WithStatsInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.statsInterval = d
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
