package renderer

import (
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/binding"
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderContextBuilderOption is a functional option applied to a RenderContext during construction via NewRenderContext.
type RenderContextBuilderOption func(*renderContext)

// WithSurfaceDescriptor sets the platform surface to render into. Without it the context is headless.
//
// Parameters:
//   - descriptor: the surface descriptor, typically from Window.SurfaceDescriptor()
//
// Returns:
//   - RenderContextBuilderOption: a function that applies the surface descriptor
func WithSurfaceDescriptor(descriptor *wgpu.SurfaceDescriptor) RenderContextBuilderOption {
	return func(r *renderContext) {
		r.surfaceDescriptor = descriptor
	}
}

// WithSize sets the initial render size in pixels.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - RenderContextBuilderOption: a function that applies the size
func WithSize(width, height int) RenderContextBuilderOption {
	return func(r *renderContext) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RenderContextBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) RenderContextBuilderOption {
	return func(r *renderContext) {
		r.presentMode = mode
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RenderContextBuilderOption: a function that applies the fallback adapter option
func WithForceFallbackAdapter(force bool) RenderContextBuilderOption {
	return func(r *renderContext) {
		r.forceFallbackAdapter = force
	}
}

// WithBindings replaces the default bindings of the set the context creates.
func WithBindings(options ...binding.BindingSetBuilderOption) RenderContextBuilderOption {
	return func(r *renderContext) {
		r.bindingOptions = options
	}
}
