package pipeline

import (
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the unexported implementation of Pipeline.
type pipeline struct {
	// key is a debug label used for every GPU object created for this pipeline.
	key string

	// source is the validated program the pipeline is built from.
	source shader.ValidatedSource

	// format is the color target format.
	format wgpu.TextureFormat

	// The following fields are GPU allocated resources. They are populated by the RenderContext
	// and released together by Release.

	module          *wgpu.ShaderModule
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout
	renderPipeline  *wgpu.RenderPipeline
	bindGroup       *wgpu.BindGroup
}

// Pipeline describes one render pipeline built from a validated program for one color target format.
//
// A Pipeline is created with NewPipeline, populated by the RenderContext via SetResources, and
// released as a unit once it is no longer current.
type Pipeline interface {
	// Key returns the debug label of the pipeline.
	//
	// Returns:
	//   - string: the label
	Key() string

	// Source returns the validated program the pipeline is built from.
	//
	// Returns:
	//   - shader.ValidatedSource: the program
	Source() shader.ValidatedSource

	// Format returns the color target format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the format
	Format() wgpu.TextureFormat

	// VertexCount returns the number of vertices drawn per frame.
	//
	// Returns:
	//   - uint32: the vertex count
	VertexCount() uint32

	// RenderPipeline returns the GPU pipeline, or nil before SetResources.
	RenderPipeline() *wgpu.RenderPipeline

	// BindGroup returns the group 0 bind group, or nil before SetResources.
	BindGroup() *wgpu.BindGroup

	// Ready reports whether the GPU resources have been set.
	Ready() bool

	// PrimitiveState returns the fixed primitive state of the full-screen draw:
	// a triangle list with no culling.
	//
	// Returns:
	//   - wgpu.PrimitiveState: the primitive state
	PrimitiveState() wgpu.PrimitiveState

	// ColorTarget returns the color target state for the format. The fragment output replaces
	// the target, so blending is off and every channel is written.
	//
	// Returns:
	//   - wgpu.ColorTargetState: the target state
	ColorTarget() wgpu.ColorTargetState

	// SetResources stores the GPU objects created for this pipeline. Ownership moves to the pipeline.
	//
	// Parameters:
	//   - module: the shader module
	//   - bindGroupLayout: the group 0 layout
	//   - pipelineLayout: the pipeline layout
	//   - renderPipeline: the render pipeline
	//   - bindGroup: the group 0 bind group
	SetResources(module *wgpu.ShaderModule, bindGroupLayout *wgpu.BindGroupLayout, pipelineLayout *wgpu.PipelineLayout, renderPipeline *wgpu.RenderPipeline, bindGroup *wgpu.BindGroup)

	// Release releases every GPU object held by the pipeline. Safe to call more than once.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new Pipeline description for source with the provided options.
// No GPU objects are created here.
//
// Parameters:
//   - key: a debug label
//   - source: the validated program
//   - opts: a variadic list of options to configure the pipeline
//
// Returns:
//   - Pipeline: the new pipeline description
func NewPipeline(key string, source shader.ValidatedSource, opts ...PipelineBuilderOption) Pipeline {
	if source.IsZero() {
		panic("pipeline requires a validated source")
	}
	p := &pipeline{
		key:    key,
		source: source,
		format: wgpu.TextureFormatRGBA8Unorm,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Key() string {
	return p.key
}

func (p *pipeline) Source() shader.ValidatedSource {
	return p.source
}

func (p *pipeline) Format() wgpu.TextureFormat {
	return p.format
}

func (p *pipeline) VertexCount() uint32 {
	return shader.FullScreenVertexCount
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *pipeline) Ready() bool {
	return p.renderPipeline != nil && p.bindGroup != nil
}

func (p *pipeline) PrimitiveState() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  wgpu.PrimitiveTopologyTriangleList,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpu.CullModeNone,
	}
}

func (p *pipeline) ColorTarget() wgpu.ColorTargetState {
	return wgpu.ColorTargetState{
		Format:    p.format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
}

func (p *pipeline) SetResources(module *wgpu.ShaderModule, bindGroupLayout *wgpu.BindGroupLayout, pipelineLayout *wgpu.PipelineLayout, renderPipeline *wgpu.RenderPipeline, bindGroup *wgpu.BindGroup) {
	p.module = module
	p.bindGroupLayout = bindGroupLayout
	p.pipelineLayout = pipelineLayout
	p.renderPipeline = renderPipeline
	p.bindGroup = bindGroup
}

func (p *pipeline) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
