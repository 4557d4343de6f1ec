package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeLayout(t *testing.T) {
	cases := []struct {
		typ   string
		size  uint64
		align uint64
	}{
		{"f32", 4, 4},
		{"u32", 4, 4},
		{"vec2<f32>", 8, 8},
		{"vec3f", 12, 16},
		{"vec4<f32>", 16, 16},
		{"mat4x4<f32>", 64, 16},
		{"array<vec3<f32>, 2>", 32, 16},
		{"array<f32, 4>", 16, 4},
	}
	for _, tc := range cases {
		size, align, ok := TypeLayout(tc.typ)
		require.True(t, ok, tc.typ)
		assert.Equal(t, tc.size, size, tc.typ)
		assert.Equal(t, tc.align, align, tc.typ)
	}

	_, _, ok := TypeLayout("array<f32>")
	assert.False(t, ok)
	_, _, ok = TypeLayout("Camera")
	assert.False(t, ok)
}

func TestScanBindings(t *testing.T) {
	src := `// @group(9) @binding(9) var<uniform> COMMENTED: f32;
@group(1) @binding(0) var<uniform> B: vec2<f32>;
/* block
   comment */
@group(0) @binding(1) var<uniform> A1: f32;
@group(0) @binding(0) var<uniform> A0: u32;
`
	decls := ScanBindings(src)
	require.Len(t, decls, 3)

	assert.Equal(t, BindingDecl{Group: 0, Binding: 0, AddressSpace: "uniform", Name: "A0", Type: "u32", Line: 6}, decls[0])
	assert.Equal(t, "A1", decls[1].Name)
	assert.Equal(t, 5, decls[1].Line)
	assert.Equal(t, "B", decls[2].Name)
	assert.Equal(t, 1, decls[2].Group)
}
