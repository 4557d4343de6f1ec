package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodShader = `@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(sin(TIME), RESOLUTION.x / 1000.0, 0.0, 1.0);
}
`

const brokenShader = `@fragment
fn fs_main() -> @location(0) vec4<f32> {
    let x = ;
    return vec4<f32>(1.0);
}
`

type recordingTarget struct {
	sources []shader.ValidatedSource
	err     error
}

func (r *recordingTarget) Rebuild(src shader.ValidatedSource) error {
	if r.err != nil {
		return r.err
	}
	r.sources = append(r.sources, src)
	return nil
}

func newTestReloader(t *testing.T, body string) (*reloader, *recordingTarget, *bytes.Buffer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	set, err := binding.NewBindingSet(nil, binding.DefaultBindings()...)
	require.NoError(t, err)
	target := &recordingTarget{}
	out := &bytes.Buffer{}
	return newReloader(path, shader.NewValidator(set), target, false, out), target, out, path
}

func TestReloadRebuildsValidShader(t *testing.T) {
	r, target, out, path := newTestReloader(t, goodShader)

	require.True(t, r.reload())
	require.Len(t, target.sources, 1)
	assert.Equal(t, path, target.sources[0].Path())
	assert.True(t, target.sources[0].SynthesizedVertex())
	assert.Empty(t, out.String())
}

func TestReloadReportsParseError(t *testing.T) {
	r, target, out, path := newTestReloader(t, goodShader)
	require.True(t, r.reload())

	require.NoError(t, os.WriteFile(path, []byte(brokenShader), 0o644))
	assert.False(t, r.reload())
	assert.Len(t, target.sources, 1)
	assert.Contains(t, out.String(), "parse error")
	assert.Equal(t, shader.StateInvalid, r.validator.State())
}

func TestReloadKeepsPipelineOnRebuildFailure(t *testing.T) {
	r, target, out, _ := newTestReloader(t, goodShader)
	target.err = errors.New("pipeline rejected")

	assert.False(t, r.reload())
	assert.Empty(t, target.sources)
	assert.Contains(t, out.String(), "pipeline rejected")
	assert.Equal(t, shader.StateInvalid, r.validator.State())
	assert.Equal(t, r.validator.Fallback(), r.validator.Current())
	require.Error(t, r.validator.LastError())
	assert.Contains(t, r.validator.LastError().Error(), "pipeline rejected")
}

func TestRebuildFailureRestoresActiveProgram(t *testing.T) {
	r, target, _, path := newTestReloader(t, goodShader)
	require.True(t, r.reload())
	active := r.validator.Current()

	edited := goodShader + "\nfn helper() -> f32 { return 1.0; }\n"
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))
	target.err = errors.New("pipeline rejected")

	assert.False(t, r.reload())
	assert.Equal(t, shader.StateInvalid, r.validator.State())
	assert.Equal(t, active, r.validator.Current())
	assert.Equal(t, target.sources[0], r.validator.Current())
}

func TestReloadMissingFile(t *testing.T) {
	r, target, out, path := newTestReloader(t, goodShader)
	require.NoError(t, os.Remove(path))

	assert.False(t, r.reload())
	assert.Empty(t, target.sources)
	assert.Contains(t, out.String(), "read shader source")
}

func TestExampleShadersValidate(t *testing.T) {
	set, err := binding.NewBindingSet(nil, binding.DefaultBindings()...)
	require.NoError(t, err)
	v := shader.NewValidator(set)

	for _, name := range []string{"plasma.wgsl", "mouse_ring.wgsl"} {
		src, err := v.ValidateFile(filepath.Join("..", "examples", name))
		require.NoError(t, err, name)
		assert.True(t, src.SynthesizedVertex(), name)
	}
}

func TestErrorContext(t *testing.T) {
	parse := &shader.ParseError{Path: "a.wgsl", Line: 2, Message: "expected expression", Context: "   2 | let x = ;"}
	assert.Equal(t, parse.Context, errorContext(parse))
	assert.Equal(t, "ctx", errorContext(fmt.Errorf("reload: %w", &shader.ValidationError{Context: "ctx"})))
	assert.Empty(t, errorContext(&shader.IOError{Path: "a.wgsl", Err: os.ErrNotExist}))
}
