package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// CaptureFormat is the texture format frames are rendered into for readback.
const CaptureFormat = wgpu.TextureFormatRGBA8Unorm

// wgpuRendererBackendImpl is the WebGPU implementation of RendererBackend.
type wgpuRendererBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   wgpu.PresentMode

	// offscreen is the capture render target, recreated when the requested size changes.
	offscreen       *wgpu.Texture
	offscreenView   *wgpu.TextureView
	offscreenWidth  int
	offscreenHeight int
}

// wgpuRendererBackend is the set of GPU operations the RenderContext delegates to.
type wgpuRendererBackend interface {
	// Device returns the logical device.
	Device() *wgpu.Device

	// Headless reports whether the backend was created without a surface.
	Headless() bool

	// ConfigureSurface (re)configures the surface for the given size. No-op when headless.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the present mode used by the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the color format of the surface, or CaptureFormat when headless.
	SurfaceFormat() wgpu.TextureFormat

	// BuildPipeline creates the GPU objects for p with bindings as group 0 and stores them on p.
	// On failure nothing is stored and everything created so far is released.
	//
	// Parameters:
	//   - p: the pipeline description
	//   - bindings: the binding set providing the group 0 layout and buffers
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	BuildPipeline(p pipeline.Pipeline, bindings binding.BindingSet) error

	// RenderToSurface draws one frame with p into the next surface texture and presents it.
	//
	// Parameters:
	//   - p: a built pipeline in the surface format
	//
	// Returns:
	//   - error: a *SurfaceError if the surface texture could not be acquired
	RenderToSurface(p pipeline.Pipeline) error

	// RenderToFrame draws one frame with p offscreen and copies it into a new FrameBuffer.
	//
	// Parameters:
	//   - p: a built pipeline in CaptureFormat
	//   - width: the frame width in pixels
	//   - height: the frame height in pixels
	//
	// Returns:
	//   - FrameBuffer: the submitted frame, owned by the caller
	//   - error: an error if encoding or allocation failed
	RenderToFrame(p pipeline.Pipeline, width, height int) (FrameBuffer, error)

	// Release releases every GPU object owned by the backend.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:            &sync.Mutex{},
		instance:      wgpu.CreateInstance(nil),
		presentMode:   wgpu.PresentModeFifo,
		surfaceFormat: CaptureFormat,
	}
	if surfaceDescriptor != nil {
		w.surface = w.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil || a == nil {
		w.Release()
		if err == nil {
			return nil, ErrAdapterNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrAdapterNotFound, err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Preview Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("%w: request device: %w", ErrAdapterNotFound, err)
	}
	w.device = d
	w.queue = d.GetQueue()

	if w.surface != nil {
		capabilities := w.surface.GetCapabilities(w.adapter)
		w.surfaceFormat = capabilities.Formats[0]
		w.alphaMode = capabilities.AlphaModes[0]
	}

	return w, nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Headless() bool {
	return b.surface == nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   b.alphaMode,
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) BuildPipeline(p pipeline.Pipeline, bindings binding.BindingSet) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		module          *wgpu.ShaderModule
		bindGroupLayout *wgpu.BindGroupLayout
		pipelineLayout  *wgpu.PipelineLayout
		renderPipeline  *wgpu.RenderPipeline
		bindGroup       *wgpu.BindGroup
	)
	defer func() {
		if err == nil {
			return
		}
		if bindGroup != nil {
			bindGroup.Release()
		}
		if renderPipeline != nil {
			renderPipeline.Release()
		}
		if pipelineLayout != nil {
			pipelineLayout.Release()
		}
		if bindGroupLayout != nil {
			bindGroupLayout.Release()
		}
		if module != nil {
			module.Release()
		}
	}()

	source := p.Source()
	module, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.Key() + " Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source.Code(),
		},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}

	bindGroupLayout, err = bindings.CreateLayout(b.device)
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Key(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindGroupLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	renderPipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.Key() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: source.VertexEntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: source.FragmentEntryPoint(),
			Targets:    []wgpu.ColorTargetState{p.ColorTarget()},
		},
		Primitive: p.PrimitiveState(),
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}

	bindGroup, err = bindings.CreateBindGroup(b.device, bindGroupLayout)
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}

	p.SetResources(module, bindGroupLayout, pipelineLayout, renderPipeline, bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) RenderToSurface(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return ErrNoSurface
	}
	if !p.Ready() {
		return ErrPipelineNotReady
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return classifySurfaceError(err)
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	b.encodeDraw(encoder, view, p)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()

	b.queue.Submit(commandBuffer)
	b.surface.Present()
	return nil
}

func (b *wgpuRendererBackendImpl) RenderToFrame(p pipeline.Pipeline, width, height int) (FrameBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if !p.Ready() {
		return nil, ErrPipelineNotReady
	}
	if err := b.ensureOffscreen(width, height); err != nil {
		return nil, err
	}

	dims := NewBufferDimensions(width, height)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "Frame Buffer",
		Size:             dims.Size,
		Usage:            wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create frame buffer: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		buf.Release()
		return nil, err
	}
	defer encoder.Release()

	b.encodeDraw(encoder, b.offscreenView, p)

	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  b.offscreen,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  dims.PaddedBytesPerRow,
				RowsPerImage: uint32(height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("copy frame to buffer: %w", err)
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		buf.Release()
		return nil, err
	}
	defer commandBuffer.Release()

	submission := b.queue.Submit(commandBuffer)
	return newFrameBuffer(b.device, b.queue, buf, dims, submission), nil
}

// encodeDraw records a single full-screen draw of p into target.
func (b *wgpuRendererBackendImpl) encodeDraw(encoder *wgpu.CommandEncoder, target *wgpu.TextureView, p pipeline.Pipeline) {
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	pass.SetPipeline(p.RenderPipeline())
	pass.SetBindGroup(0, p.BindGroup(), nil)
	pass.Draw(p.VertexCount(), 1, 0, 0)
	pass.End()
	pass.Release()
}

// ensureOffscreen keeps the capture target at width x height.
func (b *wgpuRendererBackendImpl) ensureOffscreen(width, height int) error {
	if b.offscreen != nil && b.offscreenWidth == width && b.offscreenHeight == height {
		return nil
	}
	b.releaseOffscreen()

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Capture Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        CaptureFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create capture texture: %w", err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return fmt.Errorf("create capture view: %w", err)
	}
	b.offscreen = texture
	b.offscreenView = view
	b.offscreenWidth = width
	b.offscreenHeight = height
	return nil
}

func (b *wgpuRendererBackendImpl) releaseOffscreen() {
	if b.offscreenView != nil {
		b.offscreenView.Release()
		b.offscreenView = nil
	}
	if b.offscreen != nil {
		b.offscreen.Release()
		b.offscreen = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseOffscreen()
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
