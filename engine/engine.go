package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"github.com/Carmen-Shannon/oxy-preview/engine/capture"
	"github.com/Carmen-Shannon/oxy-preview/engine/config"
	"github.com/Carmen-Shannon/oxy-preview/engine/profiler"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-preview/engine/watcher"
	"github.com/Carmen-Shannon/oxy-preview/engine/window"
)

// engine implements the Engine interface.
// Everything except the watcher and the capture worker runs on the window's message loop.
type engine struct {
	shaderPath string
	cfg        config.Config

	window    window.Window
	ownWindow bool
	rc        renderer.RenderContext
	validator shader.Validator
	watcher   watcher.Watcher
	channel   capture.Channel
	profiler  *profiler.Profiler

	controls *controls
	reloader *reloader

	profilingEnabled bool
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	reportOut        io.Writer

	// fatal is set when the loop stopped on an unrecoverable error.
	fatal    error
	quitOnce sync.Once
	log      *slog.Logger
}

// Engine is the live preview: it watches the shader file, keeps the pipeline in sync with it,
// renders to the window, and feeds the capture channel.
type Engine interface {
	// Window returns the preview window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Run renders until the window closes, then releases every resource.
	//
	// Returns:
	//   - error: nil on a normal close, or the error that stopped the loop
	Run() error

	// Quit asks the loop to stop after the current frame.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine opens the window, acquires the GPU, starts watching shaderPath and
// starts the capture worker. The fallback program renders until the file validates.
//
// Parameters:
//   - shaderPath: the WGSL file to preview
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the ready engine
//   - error: window, adapter, watcher or config failure
func NewEngine(shaderPath string, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		shaderPath: shaderPath,
		cfg:        config.Default(),
		reportOut:  os.Stderr,
		log:        common.ComponentLogger("preview"),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.renderFrameLimit == 0 {
		WithRenderFrameLimit(e.cfg.Window.MaxFPS)(e)
	}

	if err := e.init(); err != nil {
		e.release()
		return nil, err
	}
	return e, nil
}

func (e *engine) init() error {
	if e.window == nil {
		title := fmt.Sprintf("%s - %s", e.cfg.Window.Title, filepath.Base(e.shaderPath))
		w, err := window.NewWindow(
			window.WithTitle(title),
			window.WithSize(e.cfg.Window.Width, e.cfg.Window.Height),
		)
		if err != nil {
			return err
		}
		e.window = w
		e.ownWindow = true
	}

	presentMode := renderer.PresentModeUncapped
	if e.cfg.Window.VSync {
		presentMode = renderer.PresentModeVSync
	}
	rc, err := renderer.NewRenderContext(
		renderer.WithSurfaceDescriptor(e.window.SurfaceDescriptor()),
		renderer.WithSize(e.window.Width(), e.window.Height()),
		renderer.WithPresentMode(presentMode),
		renderer.WithForceFallbackAdapter(e.cfg.Window.ForceFallbackAdapter),
	)
	if err != nil {
		return err
	}
	e.rc = rc

	e.validator = shader.NewValidator(rc.Bindings())
	if err := rc.Rebuild(e.validator.Fallback()); err != nil {
		return fmt.Errorf("build fallback pipeline: %w", err)
	}

	wt, err := watcher.NewWatcher(e.shaderPath, watcher.WithPollInterval(e.cfg.PollInterval()))
	if err != nil {
		return err
	}
	e.watcher = wt

	if e.channel == nil {
		ch, err := newCaptureChannel(e.cfg)
		if err != nil {
			return err
		}
		e.channel = ch
	}

	still, err := capture.ParseStillFormat(e.cfg.Capture.StillFormat)
	if err != nil {
		return err
	}

	var profOpts []profiler.ProfilerBuilderOption
	if !e.profilingEnabled {
		profOpts = append(profOpts, profiler.WithStatsInterval(0))
	}
	e.profiler = profiler.NewProfiler(profOpts...)
	e.controls = newControls(rc, e.channel, still, e.profiler.Rate)
	e.reloader = newReloader(e.shaderPath, e.validator, rc, e.cfg.Watch.ClearTerminal, e.reportOut)

	e.window.SetResizeCallback(e.resize)
	e.window.SetKeyDownCallback(e.keyDown)
	e.window.SetMouseMoveCallback(func(x, y float32) {
		e.update(binding.NameMouse, binding.Vec2(x, y))
	})
	e.window.SetUpdateCallback(e.frame)
	return nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() error {
	defer e.release()

	e.reloader.reload()
	e.profiler.Reset()
	e.window.ProcessMessages()
	return e.fatal
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.window.RequestClose()
	})
}

// stop records a fatal error and quits.
func (e *engine) stop(err error) {
	if e.fatal == nil {
		e.fatal = err
	}
	e.Quit()
}

// frame runs one iteration of the render loop.
func (e *engine) frame() {
	start := time.Now()

	select {
	case <-e.watcher.Events():
		e.reloader.reload()
	default:
	}

	e.update(binding.NameTime, binding.F32(float32(e.profiler.Elapsed().Seconds())))
	e.update(binding.NameFrame, binding.U32(uint32(e.profiler.Frames())))

	if err := e.rc.Render(); err != nil {
		if !e.handleRenderError(err) {
			return
		}
	}

	e.controls.record()
	e.profiler.Tick()

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// handleRenderError reacts to a failed Render.
//
// Returns:
//   - bool: true if the loop should continue with this frame
func (e *engine) handleRenderError(err error) bool {
	var serr *renderer.SurfaceError
	if !errors.As(err, &serr) {
		e.log.Error("render failed", "error", err)
		return false
	}
	switch {
	case serr.NeedsReconfigure():
		e.log.Debug("reconfiguring surface", "kind", serr.Kind)
		e.rc.Reconfigure()
	case serr.Kind == renderer.SurfaceTimeout:
		e.log.Warn("surface timeout", "error", serr)
	default:
		e.log.Error("surface out of memory", "error", serr)
		e.stop(err)
	}
	return false
}

func (e *engine) keyDown(key uint32) {
	switch key {
	case common.KeyEsc:
		e.Quit()
	case common.KeyR:
		e.reloader.reload()
	default:
		e.controls.handleKey(key)
	}
}

func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.rc.Resize(width, height)
}

func (e *engine) update(name string, v binding.Value) {
	if err := e.rc.Bindings().Update(name, v); err != nil && !errors.Is(err, binding.ErrUnknownBinding) {
		e.log.Error("binding update", "name", name, "error", err)
	}
}

// release shuts everything down in reverse order of creation.
// The capture channel is drained first so pending saves still read their frames.
func (e *engine) release() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			e.log.Warn("close watcher", "error", err)
		}
	}
	if e.channel != nil {
		e.channel.Close()
	}
	if e.rc != nil {
		e.rc.Release()
	}
	if e.window != nil && e.ownWindow {
		_ = e.window.Close()
	}
}
