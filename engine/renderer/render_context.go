package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderContext is the implementation of the RenderContext interface.
type renderContext struct {
	mu *sync.Mutex

	backend  RendererBackend
	bindings binding.BindingSet

	width  int
	height int

	// surfacePipeline and capturePipeline are always built from the same source and swapped together.
	surfacePipeline pipeline.Pipeline
	capturePipeline pipeline.Pipeline

	// Pre-creation config collected from builder options
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	presentMode          PresentMode
	bindingOptions       []binding.BindingSetBuilderOption
}

// RenderContext owns the GPU device, the optional window surface, the uniform bindings and
// the currently active pipeline. All methods are called from the render loop.
type RenderContext interface {
	// Rebuild compiles source into new surface and capture pipelines. The old pipelines stay
	// active until both new ones are built, then they are swapped and released.
	//
	// Parameters:
	//   - source: a validated program
	//
	// Returns:
	//   - error: an error if the GPU rejected the program; the previous pipeline stays active
	Rebuild(source shader.ValidatedSource) error

	// Source returns the program of the active pipeline, or the zero value before the first Rebuild.
	Source() shader.ValidatedSource

	// Render draws one frame to the surface and presents it.
	//
	// Returns:
	//   - error: ErrNoSurface when headless, or a *SurfaceError
	Render() error

	// RenderToFrame draws one frame offscreen at the current size and returns its readback buffer.
	// The frame has been submitted; ownership moves to the caller.
	//
	// Returns:
	//   - FrameBuffer: the frame
	//   - error: an error if encoding failed
	RenderToFrame() (FrameBuffer, error)

	// Resize changes the render size and reconfigures the surface.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// Reconfigure reconfigures the surface at the current size, used after a lost or outdated surface.
	Reconfigure()

	// Size returns the current render size.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)

	// Bindings returns the uniform bindings shared by every pipeline.
	Bindings() binding.BindingSet

	// Headless reports whether the context renders without a surface.
	Headless() bool

	// Release releases every GPU object, including the bindings.
	Release()
}

var _ RenderContext = &renderContext{}

// NewRenderContext acquires an adapter and device, configures the surface if one was given, and
// allocates the binding set on the device (the default bindings unless WithBindings is used).
//
// Parameters:
//   - options: variadic list of RenderContextBuilderOption functions
//
// Returns:
//   - RenderContext: the new context, with no pipeline until Rebuild
//   - error: ErrAdapterNotFound (wrapped) if no GPU is usable, or a binding allocation error
func NewRenderContext(options ...RenderContextBuilderOption) (RenderContext, error) {
	r := &renderContext{
		mu:          &sync.Mutex{},
		width:       800,
		height:      600,
		presentMode: PresentModeVSync,
	}
	for _, opt := range options {
		opt(r)
	}

	backend, err := newWGPURendererBackend(r.surfaceDescriptor, r.forceFallbackAdapter)
	if err != nil {
		return nil, err
	}
	r.backend = backend
	r.backend.SetPresentMode(r.presentMode)
	r.backend.ConfigureSurface(r.width, r.height)

	opts := r.bindingOptions
	if len(opts) == 0 {
		opts = binding.DefaultBindings()
	}
	set, err := binding.NewBindingSet(r.backend.Device(), opts...)
	if err != nil {
		r.backend.Release()
		return nil, err
	}
	r.bindings = set

	if _, ok := r.bindings.Lookup(binding.NameResolution); ok {
		_ = r.bindings.Update(binding.NameResolution, binding.Vec2(float32(r.width), float32(r.height)))
	}
	return r, nil
}

func (r *renderContext) Rebuild(source shader.ValidatedSource) error {
	captureP := pipeline.NewPipeline("Capture", source, pipeline.WithFormat(CaptureFormat))
	if err := r.backend.BuildPipeline(captureP, r.bindings); err != nil {
		return err
	}

	var surfaceP pipeline.Pipeline
	if !r.backend.Headless() {
		surfaceP = pipeline.NewPipeline("Surface", source, pipeline.WithFormat(r.backend.SurfaceFormat()))
		if err := r.backend.BuildPipeline(surfaceP, r.bindings); err != nil {
			captureP.Release()
			return err
		}
	}

	r.mu.Lock()
	oldSurface, oldCapture := r.surfacePipeline, r.capturePipeline
	r.surfacePipeline, r.capturePipeline = surfaceP, captureP
	r.mu.Unlock()

	if oldSurface != nil {
		oldSurface.Release()
	}
	if oldCapture != nil {
		oldCapture.Release()
	}
	return nil
}

func (r *renderContext) Source() shader.ValidatedSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capturePipeline == nil {
		return shader.ValidatedSource{}
	}
	return r.capturePipeline.Source()
}

func (r *renderContext) Render() error {
	if r.backend.Headless() {
		return ErrNoSurface
	}
	r.mu.Lock()
	p := r.surfacePipeline
	r.mu.Unlock()
	if p == nil {
		return errors.New("render: no pipeline built")
	}
	return r.backend.RenderToSurface(p)
}

func (r *renderContext) RenderToFrame() (FrameBuffer, error) {
	r.mu.Lock()
	p := r.capturePipeline
	width, height := r.width, r.height
	r.mu.Unlock()
	if p == nil {
		return nil, errors.New("render to frame: no pipeline built")
	}
	frame, err := r.backend.RenderToFrame(p, width, height)
	if err != nil {
		return nil, fmt.Errorf("render to frame: %w", err)
	}
	return frame, nil
}

func (r *renderContext) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()

	r.backend.ConfigureSurface(width, height)
	if _, ok := r.bindings.Lookup(binding.NameResolution); ok {
		_ = r.bindings.Update(binding.NameResolution, binding.Vec2(float32(width), float32(height)))
	}
}

func (r *renderContext) Reconfigure() {
	width, height := r.Size()
	r.backend.ConfigureSurface(width, height)
}

func (r *renderContext) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderContext) Bindings() binding.BindingSet {
	return r.bindings
}

func (r *renderContext) Headless() bool {
	return r.backend.Headless()
}

func (r *renderContext) Release() {
	r.mu.Lock()
	surfaceP, captureP := r.surfacePipeline, r.capturePipeline
	r.surfacePipeline, r.capturePipeline = nil, nil
	r.mu.Unlock()

	if surfaceP != nil {
		surfaceP.Release()
	}
	if captureP != nil {
		captureP.Release()
	}
	r.bindings.Release()
	r.backend.Release()
}
