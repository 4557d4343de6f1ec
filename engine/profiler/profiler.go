package profiler

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-preview/common"
)

// DefaultRateWindow is the number of frames between frame rate updates.
const DefaultRateWindow = 10

// Profiler tracks elapsed time, the frame counter and the measured frame rate of the render loop.
// The frame rate is recomputed every rate window and is what recordings are encoded at.
// Memory statistics are logged at debug level once per stats interval.
type Profiler struct {
	now func() time.Time

	start      time.Time
	frames     uint64
	rateWindow int
	windowLen  int
	windowTime time.Time
	rate       float64

	statsInterval  time.Duration
	statsFrames    int
	statsTime      time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	log *slog.Logger
}

// NewProfiler creates a new Profiler. The clock starts immediately.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:           time.Now,
		rateWindow:    DefaultRateWindow,
		statsInterval: 5 * time.Second,
		log:           common.ComponentLogger("profiler"),
	}
	for _, opt := range options {
		opt(p)
	}
	p.Reset()
	return p
}

// Reset restarts the clock and clears the counters and rate.
func (p *Profiler) Reset() {
	t := p.now()
	p.start = t
	p.windowTime = t
	p.statsTime = t
	p.frames = 0
	p.windowLen = 0
	p.statsFrames = 0
	p.rate = 0
}

// Tick should be called once per rendered frame.
//
// Returns:
//   - bool: true if the frame rate was recomputed this tick
func (p *Profiler) Tick() bool {
	p.frames++
	p.windowLen++
	p.statsFrames++
	t := p.now()

	updated := false
	if p.windowLen >= p.rateWindow {
		if elapsed := t.Sub(p.windowTime); elapsed > 0 {
			p.rate = float64(p.windowLen) / elapsed.Seconds()
			updated = true
		}
		p.windowLen = 0
		p.windowTime = t
	}

	if p.statsInterval > 0 && t.Sub(p.statsTime) >= p.statsInterval {
		p.logStats(t.Sub(p.statsTime))
		p.statsTime = t
		p.statsFrames = 0
	}
	return updated
}

// Rate returns the most recent frame rate, or 0 before the first window completes.
func (p *Profiler) Rate() float64 {
	return p.rate
}

// Frames returns the number of ticks since the last Reset.
func (p *Profiler) Frames() uint64 {
	return p.frames
}

// Elapsed returns the time since the last Reset.
func (p *Profiler) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

func (p *Profiler) logStats(elapsed time.Duration) {
	if !p.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	runtime.ReadMemStats(&p.memStats)

	fps := float64(p.statsFrames) / elapsed.Seconds()
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
	}

	p.log.Debug("frame stats",
		"fps", fps,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_new", gcCount-p.lastGCCount,
		"last_pause_us", lastPauseUs,
		"sys_mb", sysMB,
	)
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
