package capture

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"golang.org/x/image/draw"
)

// Channel is a FIFO pipeline from the render loop to a single capture worker goroutine.
// The worker owns the recording: frames appended by ExtractData and flushed by SaveGif or SaveMp4.
type Channel interface {
	// Send enqueues msg without blocking.
	//
	// Parameters:
	//   - msg: the message to enqueue
	//
	// Returns:
	//   - error: ErrChannelClosed once Exit has been sent
	Send(msg Message) error

	// Close sends Exit and waits for the worker to finish every message queued before it.
	// Safe to call more than once.
	Close()

	// Done is closed when the worker has returned.
	Done() <-chan struct{}
}

// channel is the unexported implementation of Channel.
type channel struct {
	mu *sync.Mutex

	queue  []Message
	notify chan struct{}
	closed bool
	done   chan struct{}
	once   *sync.Once

	log *slog.Logger

	// Settings from builder options.
	outputDir     string
	maxFrames     int
	stillEncoders map[StillFormat]StillEncoder
	gifEncoder    SequenceEncoder
	mp4Encoder    SequenceEncoder
	now           func() time.Time
	processed     func(msg Message, accumulated int)
	failed        func(msg Message, err error)

	// Worker-owned state.
	frames      []RawFrame
	dropWarned  bool
	readTimeout time.Duration
}

var _ Channel = &channel{}

// NewChannel creates a Channel and starts its worker.
//
// Parameters:
//   - options: variadic list of ChannelBuilderOption functions
//
// Returns:
//   - Channel: the running channel
func NewChannel(options ...ChannelBuilderOption) Channel {
	c := &channel{
		mu:            &sync.Mutex{},
		notify:        make(chan struct{}, 1),
		done:          make(chan struct{}),
		once:          &sync.Once{},
		log:           common.ComponentLogger("capture"),
		outputDir:     ".",
		stillEncoders: defaultStillEncoders(),
		now:           time.Now,
		readTimeout:   30 * time.Second,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.gifEncoder == nil {
		c.gifEncoder = NewGifEncoder(0, 0, 0)
	}
	if c.mp4Encoder == nil {
		c.mp4Encoder = NewFFmpegEncoder("", "", nil)
	}

	go c.run()
	return c
}

func (c *channel) Send(msg Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Warn("message rejected, capture channel closed", "message", msg.messageName())
		releaseFrame(msg)
		return ErrChannelClosed
	}
	if _, ok := msg.(Exit); ok {
		c.closed = true
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

func (c *channel) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			_ = c.Send(Exit{})
		}
	})
	<-c.done
}

func (c *channel) Done() <-chan struct{} {
	return c.done
}

// next blocks until a message is queued and pops it.
func (c *channel) next() Message {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			msg := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return msg
		}
		c.mu.Unlock()
		<-c.notify
	}
}

func (c *channel) run() {
	defer close(c.done)

	for {
		msg := c.next()
		var err error
		switch m := msg.(type) {
		case Exit:
			if len(c.frames) > 0 {
				c.log.Info("discarding unsaved recording", "frames", len(c.frames))
			}
			c.frames = nil
			c.hook(msg)
			return
		case ExtractData:
			err = c.extract(m.Frame)
		case SavePng:
			err = c.saveStill(m.Frame, StillPNG, m.Resolution)
		case SaveStill:
			err = c.saveStill(m.Frame, m.Format, m.Resolution)
		case SaveGif:
			err = c.flush(c.gifEncoder, m.Resolution, m.Rate)
		case SaveMp4:
			err = c.flush(c.mp4Encoder, m.Resolution, m.Rate)
		}
		if err != nil {
			c.log.Error("capture failed", "message", msg.messageName(), "error", err)
			if c.failed != nil {
				c.failed(msg, err)
			}
		}
		c.hook(msg)
	}
}

func (c *channel) hook(msg Message) {
	if c.processed != nil {
		c.processed(msg, len(c.frames))
	}
}

// read waits for the frame's readback and decodes it. The frame is consumed either way.
func (c *channel) read(frame Frame) (RawFrame, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.readTimeout)
	defer cancel()

	if err := frame.MapRead(ctx); err != nil {
		frame.Release()
		return RawFrame{}, err
	}
	pix, err := frame.ExtractData()
	if err != nil {
		frame.Release()
		return RawFrame{}, err
	}
	return RawFrame{Width: frame.Width(), Height: frame.Height(), Pix: pix}, nil
}

func (c *channel) extract(frame Frame) error {
	if frame == nil {
		return nil
	}
	if c.maxFrames > 0 && len(c.frames) >= c.maxFrames {
		frame.Release()
		if !c.dropWarned {
			c.dropWarned = true
			c.log.Warn("recording buffer full, dropping frames until the next save", "max_frames", c.maxFrames)
		}
		return nil
	}

	raw, err := c.read(frame)
	if err != nil {
		return fmt.Errorf("frame readback: %w", err)
	}
	c.frames = append(c.frames, raw)
	return nil
}

func (c *channel) saveStill(frame Frame, format StillFormat, res Resolution) error {
	if frame == nil {
		return nil
	}
	raw, err := c.read(frame)
	if err != nil {
		return &EncodingError{Format: format.String(), Err: err}
	}

	enc, ok := c.stillEncoders[format]
	if !ok {
		return &EncodingError{Format: format.String(), Err: fmt.Errorf("no encoder registered")}
	}

	img := scaleStill(raw.Image(), res)
	path, err := c.outputPath(format.Extension())
	if err == nil {
		err = writeFile(path, func(w *bufio.Writer) error {
			return enc.EncodeStill(w, img)
		})
	}
	if err != nil {
		return &EncodingError{Format: format.String(), Path: path, Err: err}
	}
	c.log.Info("saved capture", "path", path, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return nil
}

// scaleStill resizes img to res. A zero or matching res returns img unchanged.
func scaleStill(img *image.RGBA, res Resolution) image.Image {
	if res.Width <= 0 || res.Height <= 0 {
		return img
	}
	if res.Width == img.Rect.Dx() && res.Height == img.Rect.Dy() {
		return img
	}
	bounds := image.Rect(0, 0, res.Width, res.Height)
	scaled := image.NewRGBA(bounds)
	draw.CatmullRom.Scale(scaled, bounds, img, img.Bounds(), draw.Src, nil)
	return scaled
}

// flush encodes the recording and then clears it, whether or not encoding succeeded.
func (c *channel) flush(enc SequenceEncoder, res Resolution, rate float64) error {
	frames := c.frames
	c.frames = nil
	c.dropWarned = false

	if len(frames) == 0 {
		c.log.Warn("nothing recorded, skipping save", "format", enc.Extension())
		return nil
	}

	path, err := c.outputPath(enc.Extension())
	if err == nil {
		start := time.Now()
		err = enc.EncodeSequence(path, frames, res, rate)
		if err == nil {
			c.log.Info("saved recording", "path", path, "frames", len(frames), "took", time.Since(start).Round(time.Millisecond))
			return nil
		}
	}
	return &EncodingError{Format: enc.Extension(), Path: path, Err: err}
}

func (c *channel) outputPath(ext string) (string, error) {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", err
	}
	return common.UniqueCapturePath(c.outputDir, c.now(), ext), nil
}

func writeFile(path string, write func(w *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// releaseFrame frees the frame carried by a rejected message.
func releaseFrame(msg Message) {
	switch m := msg.(type) {
	case ExtractData:
		if m.Frame != nil {
			m.Frame.Release()
		}
	case SavePng:
		if m.Frame != nil {
			m.Frame.Release()
		}
	case SaveStill:
		if m.Frame != nil {
			m.Frame.Release()
		}
	}
}
