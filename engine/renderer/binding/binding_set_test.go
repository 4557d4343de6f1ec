package binding

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeclarationOnly(t *testing.T, options ...BindingSetBuilderOption) BindingSet {
	t.Helper()
	set, err := NewBindingSet(nil, options...)
	require.NoError(t, err)
	return set
}

func TestDefaultPrelude(t *testing.T) {
	set := newDeclarationOnly(t, DefaultBindings()...)

	want := "@group(0) @binding(0) var<uniform> TIME: f32;\n" +
		"@group(0) @binding(1) var<uniform> RESOLUTION: vec2<f32>;\n" +
		"@group(0) @binding(2) var<uniform> MOUSE: vec2<f32>;\n" +
		"@group(0) @binding(3) var<uniform> FRAME: u32;\n"
	assert.Equal(t, want, set.Prelude())
}

func TestPreludeIndexMatchesLayoutEntry(t *testing.T) {
	set := newDeclarationOnly(t,
		WithBinding("A", F32(1)),
		WithPlaceholder(),
		WithBinding("B", Vec4(1, 2, 3, 4)),
		WithBinding("C", U32(7)),
	)

	decls := shader.ScanBindings(set.Prelude())
	entries := set.LayoutEntries()
	require.Len(t, entries, 4)
	require.Len(t, decls, 3)

	for i, entry := range entries {
		assert.Equal(t, uint32(i), entry.Binding)
		assert.Equal(t, wgpu.BufferBindingTypeUniform, entry.Buffer.Type)
	}
	for _, decl := range decls {
		assert.Equal(t, 0, decl.Group)
		b, ok := set.Lookup(decl.Name)
		require.True(t, ok, decl.Name)
		assert.Equal(t, b.Index(), decl.Binding)
		assert.Equal(t, b.Kind().WGSLType(), decl.Type)
		assert.Equal(t, entries[decl.Binding].Buffer.MinBindingSize, b.Size())
	}
}

func TestPlaceholderConsumesIndex(t *testing.T) {
	set := newDeclarationOnly(t, WithPlaceholder(), WithBinding("TIME", F32(0)))

	assert.Equal(t, "@group(0) @binding(1) var<uniform> TIME: f32;\n", set.Prelude())
	bindings := set.Bindings()
	require.Len(t, bindings, 2)
	assert.Empty(t, bindings[0].Declaration())
	assert.Equal(t, 0, bindings[0].Index())
	assert.Equal(t, 1, bindings[1].Index())
}

func TestBufferSizesAreUniformAligned(t *testing.T) {
	set := newDeclarationOnly(t, DefaultBindings()...)
	for _, b := range set.Bindings() {
		assert.Equal(t, uint64(MinUniformAlignment), b.Size(), b.Name())
		assert.Len(t, b.Bytes(), MinUniformAlignment)
	}

	vec := newDeclarationOnly(t, WithBinding("V", Vec4(0, 0, 0, 0)))
	b, _ := vec.Lookup("V")
	assert.Equal(t, uint64(16), b.Size())
}

func TestUpdate(t *testing.T) {
	set := newDeclarationOnly(t, DefaultBindings()...)

	require.NoError(t, set.Update(NameTime, F32(1.5)))
	b, ok := set.Lookup(NameTime)
	require.True(t, ok)
	got := b.Bytes()
	assert.Equal(t, math.Float32bits(1.5), binary.LittleEndian.Uint32(got[:4]))
	assert.Equal(t, make([]byte, 12), got[4:])
	assert.Equal(t, uint64(16), b.Size())

	require.NoError(t, set.Update(NameResolution, Vec2(800, 600)))
	res, _ := set.Lookup(NameResolution)
	assert.Equal(t, math.Float32bits(600), binary.LittleEndian.Uint32(res.Bytes()[4:8]))

	err := set.Update(NameTime, U32(1))
	var mismatch *KindMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, KindF32, mismatch.Want)
	assert.Equal(t, KindU32, mismatch.Got)

	err = set.Update("NOPE", F32(0))
	assert.True(t, errors.Is(err, ErrUnknownBinding))
}

func TestValueBytes(t *testing.T) {
	assert.Len(t, F32(1).Bytes(), 4)
	assert.Len(t, U32(1).Bytes(), 4)
	assert.Len(t, Vec2(1, 2).Bytes(), 8)
	assert.Len(t, Vec4(1, 2, 3, 4).Bytes(), 16)

	assert.Equal(t, []byte{0x2a, 0, 0, 0}, U32(42).Bytes())
	assert.Equal(t, []float32{1, 2, 3, 4}, Vec4(1, 2, 3, 4).Float32s())
	assert.Equal(t, KindF32, Value{}.Kind())
}

func TestCreateBindGroupWithoutBuffers(t *testing.T) {
	set := newDeclarationOnly(t, DefaultBindings()...)
	_, err := set.CreateBindGroup(nil, nil)
	assert.Error(t, err)
}

func TestDefaultPreludeValidates(t *testing.T) {
	set := newDeclarationOnly(t, DefaultBindings()...)
	v := shader.NewValidator(set)

	src := `
@fragment
fn fs_main(@builtin(position) frag: vec4<f32>) -> @location(0) vec4<f32> {
    let t = TIME;
    let r = RESOLUTION;
    let m = MOUSE;
    return vec4<f32>(sin(t), r.x * 0.0, m.y * 0.0, 1.0);
}
`
	_, err := v.ValidateSource("uniforms.wgsl", src)
	require.NoError(t, err)
}

func TestDuplicateNamePanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = NewBindingSet(nil, WithBinding("A", F32(0)), WithBinding("A", F32(0)))
	})
}
