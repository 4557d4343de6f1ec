package capture

import "time"

// ChannelBuilderOption is a functional option used to configure a Channel during construction.
type ChannelBuilderOption func(*channel)

// WithOutputDir sets the directory capture files are written to. It is created on first save.
//
// Parameters:
//   - dir: the output directory
//
// Returns:
//   - ChannelBuilderOption: a function that sets the output directory
func WithOutputDir(dir string) ChannelBuilderOption {
	return func(c *channel) {
		if dir != "" {
			c.outputDir = dir
		}
	}
}

// WithMaxFrames caps the recording. Frames arriving when it is full are released and dropped
// until the next SaveGif or SaveMp4. Zero means unbounded.
//
// Parameters:
//   - n: the maximum number of recorded frames
//
// Returns:
//   - ChannelBuilderOption: a function that sets the cap
func WithMaxFrames(n int) ChannelBuilderOption {
	return func(c *channel) {
		c.maxFrames = max(n, 0)
	}
}

// WithGifEncoder replaces the GIF encoder.
func WithGifEncoder(enc SequenceEncoder) ChannelBuilderOption {
	return func(c *channel) {
		c.gifEncoder = enc
	}
}

// WithMp4Encoder replaces the MP4 encoder.
func WithMp4Encoder(enc SequenceEncoder) ChannelBuilderOption {
	return func(c *channel) {
		c.mp4Encoder = enc
	}
}

// WithStillEncoder registers the encoder used for a still format.
//
// Parameters:
//   - format: the still format
//   - enc: the encoder
//
// Returns:
//   - ChannelBuilderOption: a function that registers the encoder
func WithStillEncoder(format StillFormat, enc StillEncoder) ChannelBuilderOption {
	return func(c *channel) {
		c.stillEncoders[format] = enc
	}
}

// WithClock sets the time source used to name output files.
func WithClock(now func() time.Time) ChannelBuilderOption {
	return func(c *channel) {
		c.now = now
	}
}

// WithReadTimeout bounds how long the worker waits for one frame readback.
func WithReadTimeout(d time.Duration) ChannelBuilderOption {
	return func(c *channel) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithProcessedHook registers a callback the worker calls after each message with the
// recording length at that point.
func WithProcessedHook(hook func(msg Message, accumulated int)) ChannelBuilderOption {
	return func(c *channel) {
		c.processed = hook
	}
}

// WithErrorHandler registers a callback the worker calls when a message fails to read back,
// encode or write. It runs on the worker goroutine before the processed hook.
func WithErrorHandler(handler func(msg Message, err error)) ChannelBuilderOption {
	return func(c *channel) {
		c.failed = handler
	}
}
