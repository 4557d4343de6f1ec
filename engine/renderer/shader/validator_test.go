package shader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPrelude string

func (p staticPrelude) Prelude() string { return string(p) }

const testPrelude = staticPrelude("@group(0) @binding(0) var<uniform> TIME: f32;\n" +
	"@group(0) @binding(1) var<uniform> RESOLUTION: vec2<f32>;\n")

const fragmentOnly = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(sin(TIME), 0.2, 0.3, 1.0);
}
`

const bothStages = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(-0.5, -0.5),
        vec2<f32>(0.5, -0.5),
        vec2<f32>(0.0, 0.5)
    );
    return vec4<f32>(pos[idx], 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

const vertexOnly = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn main_image() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

const undeclaredIdentifier = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(UNKNOWN_VALUE, 0.0, 0.0, 1.0);
}
`

const syntaxError = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0
}
`

func writeShader(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestNewValidatorStartsWithFallback(t *testing.T) {
	v := NewValidator(testPrelude)

	assert.Equal(t, StateUnvalidated, v.State())
	assert.Nil(t, v.LastError())
	fallback := v.Fallback()
	assert.Equal(t, fallback, v.Current())
	assert.True(t, fallback.SynthesizedVertex())
	assert.Contains(t, fallback.Code(), "vec4<f32>(0.1, 0.2, 0.3, 1.0)")
	assert.True(t, strings.HasPrefix(fallback.Code(), testPrelude.Prelude()))
}

func TestValidateFragmentOnlySynthesizesVertexStage(t *testing.T) {
	v := NewValidator(testPrelude)

	src, err := v.ValidateFile(writeShader(t, fragmentOnly))
	require.NoError(t, err)

	assert.Equal(t, StateValid, v.State())
	assert.True(t, src.SynthesizedVertex())
	assert.Equal(t, src, v.Current())
	assert.True(t, strings.HasPrefix(src.Code(), testPrelude.Prelude()))
	assert.True(t, strings.HasSuffix(src.Code(), fullScreenVertexStage))

	ast, err := naga.Parse(src.Code())
	require.NoError(t, err)
	module, err := naga.LowerWithSource(ast, src.Code())
	require.NoError(t, err)
	assert.True(t, hasEntryPoint(module, VertexEntryPoint, ir.StageVertex))
	assert.True(t, hasEntryPoint(module, FragmentEntryPoint, ir.StageFragment))
}

func TestSynthesizedVertexStageNeedsNoVertexBuffers(t *testing.T) {
	assert.Equal(t, 3, FullScreenVertexCount)
	assert.NotContains(t, fullScreenVertexStage, "@location")
	assert.Contains(t, fullScreenVertexStage, "@builtin(vertex_index)")
	assert.Equal(t, FullScreenVertexCount, strings.Count(fullScreenVertexStage, "vec2<f32>("))
}

func TestValidateKeepsUserVertexStage(t *testing.T) {
	v := NewValidator(testPrelude)

	src, err := v.ValidateSource("both.wgsl", bothStages)
	require.NoError(t, err)
	assert.False(t, src.SynthesizedVertex())
	assert.Equal(t, testPrelude.Prelude()+bothStages, src.Code())
}

func TestMissingFragmentEntryPoint(t *testing.T) {
	v := NewValidator(testPrelude)

	_, err := v.ValidateSource("vertex.wgsl", vertexOnly)
	var missing *MissingEntryPointError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FragmentEntryPoint, missing.EntryPoint)
	assert.Equal(t, StateInvalid, v.State())
	assert.Equal(t, v.Fallback(), v.Current())
}

func TestParseErrorCarriesPathAndUserLocation(t *testing.T) {
	v := NewValidator(testPrelude)

	_, err := v.ValidateSource("broken.wgsl", syntaxError)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "broken.wgsl", perr.Path)
	assert.Positive(t, perr.Line)
	assert.LessOrEqual(t, perr.Line, strings.Count(syntaxError, "\n"))
	assert.Contains(t, perr.Error(), "broken.wgsl:")
}

func TestUndeclaredIdentifierIsValidationError(t *testing.T) {
	v := NewValidator(testPrelude)

	_, err := v.ValidateSource("undeclared.wgsl", undeclaredIdentifier)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "UNKNOWN_VALUE")
}

func TestFailedEditKeepsPreviousProgram(t *testing.T) {
	v := NewValidator(testPrelude)
	path := writeShader(t, fragmentOnly)

	good, err := v.ValidateFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(undeclaredIdentifier), 0o644))
	_, err = v.ValidateFile(path)
	require.Error(t, err)

	assert.Equal(t, StateInvalid, v.State())
	assert.Equal(t, good, v.Current())
	assert.Equal(t, err, v.LastError())

	require.NoError(t, os.WriteFile(path, []byte(fragmentOnly), 0o644))
	_, err = v.ValidateFile(path)
	require.NoError(t, err)
	assert.Equal(t, StateValid, v.State())
	assert.Nil(t, v.LastError())
}

func TestRejectRestoresPreviousProgram(t *testing.T) {
	v := NewValidator(testPrelude)

	first, err := v.ValidateSource("first.wgsl", fragmentOnly)
	require.NoError(t, err)
	rejection := errors.New("pipeline rejected")
	v.Reject(first, rejection)
	assert.Equal(t, StateInvalid, v.State())
	assert.Equal(t, v.Fallback(), v.Current())
	assert.Equal(t, rejection, v.LastError())

	good, err := v.ValidateSource("good.wgsl", fragmentOnly)
	require.NoError(t, err)
	bad, err := v.ValidateSource("bad.wgsl", bothStages)
	require.NoError(t, err)
	v.Reject(bad, rejection)
	assert.Equal(t, good, v.Current())
	assert.Equal(t, StateInvalid, v.State())

	// a stale rejection leaves a newer program alone
	v.Reject(bad, rejection)
	assert.Equal(t, good, v.Current())
}

func TestMissingFileIsIOError(t *testing.T) {
	v := NewValidator(testPrelude)

	_, err := v.ValidateFile(filepath.Join(t.TempDir(), "nope.wgsl"))
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, StateInvalid, v.State())
}

func TestReservedGroupIsRejected(t *testing.T) {
	v := NewValidator(testPrelude)

	text := "\n@group(0) @binding(7) var<uniform> MINE: f32;\n" + fragmentOnly
	_, err := v.ValidateSource("reserved.wgsl", text)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.Line)
	assert.Contains(t, verr.Message, "MINE")
}

func TestWithReadFile(t *testing.T) {
	v := NewValidator(testPrelude, WithReadFile(func(string) ([]byte, error) {
		return []byte(fragmentOnly), nil
	}))
	_, err := v.ValidateFile("virtual.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "virtual.wgsl", v.Current().Path())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "valid", StateValid.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestSourceExcerpt(t *testing.T) {
	got := sourceExcerpt("a\nlet x = ;\n", 2, 9)
	assert.Equal(t, "   2 | let x = ;\n     |         ^", got)
	assert.Empty(t, sourceExcerpt("a", 5, 1))
}
