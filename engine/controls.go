package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"github.com/Carmen-Shannon/oxy-preview/engine/capture"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer"
)

// frameSource renders offscreen frames for capture.
type frameSource interface {
	RenderToFrame() (renderer.FrameBuffer, error)
	Size() (int, int)
}

// controls maps capture keys onto capture channel messages and owns the recording toggle.
// It runs on the render loop only.
type controls struct {
	frames  frameSource
	channel capture.Channel
	still   capture.StillFormat
	// rate reports the measured frame rate used for MP4 output.
	rate func() float64

	recording bool
	log       *slog.Logger
}

func newControls(frames frameSource, channel capture.Channel, still capture.StillFormat, rate func() float64) *controls {
	return &controls{
		frames:  frames,
		channel: channel,
		still:   still,
		rate:    rate,
		log:     common.ComponentLogger("preview"),
	}
}

// handleKey performs the capture action bound to key.
//
// Parameters:
//   - key: the virtual key code
//
// Returns:
//   - bool: true if the key was a capture key
func (c *controls) handleKey(key uint32) bool {
	switch key {
	case common.KeyF5:
		c.captureStill()
	case common.KeyF6:
		c.recording = !c.recording
		c.log.Info("recording toggled", "recording", c.recording)
	case common.KeyF7:
		c.send(capture.SaveGif{Resolution: c.resolution()})
	case common.KeyF8:
		c.send(capture.SaveMp4{Rate: c.mp4Rate(), Resolution: c.resolution()})
	default:
		return false
	}
	return true
}

// record sends the current frame to the recording when recording is on.
func (c *controls) record() {
	if !c.recording {
		return
	}
	frame, err := c.frames.RenderToFrame()
	if err != nil {
		c.log.Error("record frame", "error", err)
		return
	}
	c.send(capture.ExtractData{Frame: frame})
}

func (c *controls) captureStill() {
	frame, err := c.frames.RenderToFrame()
	if err != nil {
		c.log.Error("capture still", "error", err)
		return
	}
	if c.still == capture.StillPNG {
		c.send(capture.SavePng{Frame: frame, Resolution: c.resolution()})
		return
	}
	c.send(capture.SaveStill{Frame: frame, Resolution: c.resolution(), Format: c.still})
}

func (c *controls) send(msg capture.Message) {
	if err := c.channel.Send(msg); err != nil {
		c.log.Warn("capture message rejected", "error", err)
	}
}

func (c *controls) resolution() capture.Resolution {
	w, h := c.frames.Size()
	return capture.Resolution{Width: w, Height: h}
}

func (c *controls) mp4Rate() float64 {
	if c.rate == nil {
		return capture.DefaultMp4Rate
	}
	if r := c.rate(); r > 0 {
		return r
	}
	return capture.DefaultMp4Rate
}
