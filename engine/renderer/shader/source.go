package shader

import "fmt"

const (
	// VertexEntryPoint is the vertex stage function name every program must expose
	// (or have synthesized for it).
	VertexEntryPoint = "vs_main"

	// FragmentEntryPoint is the mandatory fragment stage function name.
	FragmentEntryPoint = "fs_main"

	// FullScreenVertexCount is the number of vertices drawn by the synthesized vertex stage.
	FullScreenVertexCount = 3

	// PreludeGroup is the bind group the prelude declares. User code may not declare it.
	PreludeGroup = 0
)

// fullScreenVertexStage draws one triangle covering the viewport from the vertex index alone,
// so no vertex buffers are bound.
var fullScreenVertexStage = fmt.Sprintf(`
@vertex
fn %s(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(-1.0, -1.0),
        vec2<f32>(3.0, -1.0),
        vec2<f32>(-1.0, 3.0)
    );
    return vec4<f32>(pos[idx], 0.0, 1.0);
}
`, VertexEntryPoint)

// fallbackFragmentStage clears the screen to a constant color.
var fallbackFragmentStage = fmt.Sprintf(`
@fragment
fn %s() -> @location(0) vec4<f32> {
    return vec4<f32>(0.1, 0.2, 0.3, 1.0);
}
`, FragmentEntryPoint)

// fallbackPath names the baked-in program in diagnostics.
const fallbackPath = "<fallback>"

// ValidatedSource is a WGSL program that passed validation.
// It can only be produced by a Validator.
type ValidatedSource struct {
	path              string
	code              string
	synthesizedVertex bool
}

// Code returns the final program text: prelude, user code and any synthesized vertex stage.
func (s ValidatedSource) Code() string { return s.code }

// Path returns the file the program was loaded from.
func (s ValidatedSource) Path() string { return s.path }

// SynthesizedVertex reports whether the full-screen vertex stage was appended.
func (s ValidatedSource) SynthesizedVertex() bool { return s.synthesizedVertex }

// IsZero reports whether s is the zero value rather than a validated program.
func (s ValidatedSource) IsZero() bool { return s.code == "" }

// VertexEntryPoint returns the vertex entry point name.
func (s ValidatedSource) VertexEntryPoint() string { return VertexEntryPoint }

// FragmentEntryPoint returns the fragment entry point name.
func (s ValidatedSource) FragmentEntryPoint() string { return FragmentEntryPoint }
