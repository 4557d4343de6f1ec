package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"github.com/Carmen-Shannon/oxy-preview/engine/capture"
	"github.com/Carmen-Shannon/oxy-preview/engine/config"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
)

// BatchOptions describes a headless render.
type BatchOptions struct {
	// Frames is the number of frames to render.
	Frames int
	// Rate is the frame rate; frame i renders at TIME = i/Rate.
	Rate float64
	// Format is gif, mp4, or a still format (png, bmp, tiff) to write every frame as an image.
	Format string
	Width  int
	Height int
}

// Validate checks the options before any GPU work starts.
//
// Returns:
//   - error: the first invalid field, or nil
func (o BatchOptions) Validate() error {
	if o.Frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", o.Frames)
	}
	if o.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %g", o.Rate)
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("size must be positive, got %dx%d", o.Width, o.Height)
	}
	switch strings.ToLower(o.Format) {
	case "gif", "mp4":
		return nil
	}
	if _, err := capture.ParseStillFormat(o.Format); err != nil || o.Format == "" {
		return fmt.Errorf("unsupported format %q", o.Format)
	}
	return nil
}

// RunBatch renders shaderPath offscreen without a window and writes the result to the
// configured output directory. An invalid shader is an error here since nothing would be rendered.
//
// Parameters:
//   - ctx: cancels the render between frames
//   - shaderPath: the WGSL file to render
//   - cfg: the preview configuration
//   - opts: frame count, rate, size and output format
//
// Returns:
//   - error: option, adapter, shader, readback or encoding failure
func RunBatch(ctx context.Context, shaderPath string, cfg config.Config, opts BatchOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	log := common.ComponentLogger("preview")

	rc, err := renderer.NewRenderContext(
		renderer.WithSize(opts.Width, opts.Height),
		renderer.WithForceFallbackAdapter(cfg.Window.ForceFallbackAdapter),
	)
	if err != nil {
		return err
	}
	defer rc.Release()

	src, err := shader.NewValidator(rc.Bindings()).ValidateFile(shaderPath)
	if err != nil {
		return err
	}
	if err := rc.Rebuild(src); err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	// The whole batch is one recording, so the configured cap does not apply.
	failures := &batchErrors{}
	ch, err := newCaptureChannel(cfg, capture.WithMaxFrames(0), capture.WithErrorHandler(failures.handle))
	if err != nil {
		return err
	}
	defer ch.Close()

	res := capture.Resolution{Width: opts.Width, Height: opts.Height}
	format := strings.ToLower(opts.Format)
	still, _ := capture.ParseStillFormat(format)
	bindings := rc.Bindings()

	for i := range opts.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = bindings.Update(binding.NameTime, binding.F32(float32(float64(i)/opts.Rate)))
		_ = bindings.Update(binding.NameFrame, binding.U32(uint32(i)))

		frame, err := rc.RenderToFrame()
		if err != nil {
			return err
		}
		// Wait for this frame before rendering the next so GPU memory stays bounded.
		if err := frame.MapRead(ctx); err != nil {
			frame.Release()
			return fmt.Errorf("read back frame %d: %w", i, err)
		}

		if err := ch.Send(frameMessage(format, still, frame, res)); err != nil {
			return err
		}
	}

	if msg := finishMessage(format, res, opts.Rate); msg != nil {
		if err := ch.Send(msg); err != nil {
			return err
		}
	}
	ch.Close()
	if err := failures.err(); err != nil {
		return err
	}
	log.Info("batch rendered", "path", shaderPath, "frames", opts.Frames, "format", format, "size", res)
	return nil
}

// frameMessage wraps one rendered frame: recorded for gif and mp4, saved directly for stills.
func frameMessage(format string, still capture.StillFormat, frame capture.Frame, res capture.Resolution) capture.Message {
	switch format {
	case "gif", "mp4":
		return capture.ExtractData{Frame: frame}
	case "png":
		return capture.SavePng{Frame: frame, Resolution: res}
	default:
		return capture.SaveStill{Frame: frame, Resolution: res, Format: still}
	}
}

// finishMessage returns the save that encodes a gif or mp4 batch at rate, or nil for stills.
func finishMessage(format string, res capture.Resolution, rate float64) capture.Message {
	switch format {
	case "gif":
		return capture.SaveGif{Rate: rate, Resolution: res}
	case "mp4":
		return capture.SaveMp4{Rate: rate, Resolution: res}
	}
	return nil
}

// batchErrors collects failures reported by the capture worker.
// Read it only after the channel has closed.
type batchErrors struct {
	errs []error
}

func (b *batchErrors) handle(_ capture.Message, err error) {
	b.errs = append(b.errs, err)
}

func (b *batchErrors) err() error {
	return errors.Join(b.errs...)
}
