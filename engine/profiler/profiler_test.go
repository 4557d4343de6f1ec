package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateUpdatesEveryWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithClock(clock.now), WithStatsInterval(0))

	for i := 1; i < DefaultRateWindow; i++ {
		clock.advance(20 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Zero(t, p.Rate())

	clock.advance(20 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.InDelta(t, 50.0, p.Rate(), 0.001)
	assert.Equal(t, uint64(DefaultRateWindow), p.Frames())
	assert.Equal(t, 200*time.Millisecond, p.Elapsed())

	for range DefaultRateWindow {
		clock.advance(10 * time.Millisecond)
		p.Tick()
	}
	assert.InDelta(t, 100.0, p.Rate(), 0.001)
}

func TestReset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithRateWindow(2), WithStatsInterval(0))
	clock.advance(time.Second)
	p.Tick()
	clock.advance(time.Second)
	p.Tick()
	assert.InDelta(t, 1.0, p.Rate(), 0.001)

	p.Reset()
	assert.Zero(t, p.Frames())
	assert.Zero(t, p.Rate())
	assert.Zero(t, p.Elapsed())
}
