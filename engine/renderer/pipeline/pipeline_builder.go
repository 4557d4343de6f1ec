package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithFormat sets the color target format of the pipeline.
//
// Parameters:
//   - format: the texture format the pipeline renders into
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color target format
func WithFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.format = format
	}
}
