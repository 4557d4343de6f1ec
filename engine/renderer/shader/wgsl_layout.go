package shader

import (
	"strconv"
	"strings"
)

// wgslTypeLayout is the byte size and alignment of a host-shareable WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// wgslPrimitiveLayoutMap maps WGSL scalar, vector and matrix type names
// to their byte size and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	// Scalars
	"f32": {4, 4},
	"i32": {4, 4},
	"u32": {4, 4},
	"f16": {2, 2},

	// Vectors – f32
	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	// Vectors – i32
	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	// Vectors – u32
	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	// Matrices – matCxR<f32>
	"mat2x2<f32>": {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
}

// TypeLayout resolves a WGSL type name to its byte size and alignment.
// Fixed-size arrays of known element types are supported; runtime-sized arrays,
// structs and unknown names are not.
//
// Parameters:
//   - typeName: the WGSL type, e.g. "f32", "vec2<f32>" or "array<vec4f, 4>"
//
// Returns:
//   - uint64: the size in bytes
//   - uint64: the alignment in bytes
//   - bool: false if the type cannot be resolved
func TypeLayout(typeName string) (uint64, uint64, bool) {
	layout, ok := resolveTypeLayout(strings.ReplaceAll(typeName, " ", ""))
	return layout.size, layout.align, ok
}

func resolveTypeLayout(typeName string) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return wgslTypeLayout{}, false
	}
	inner = inner[:len(inner)-1]
	cut := strings.LastIndex(inner, ",")
	if cut < 0 {
		return wgslTypeLayout{}, false
	}
	elem, ok := resolveTypeLayout(inner[:cut])
	if !ok {
		return wgslTypeLayout{}, false
	}
	count, err := strconv.ParseUint(inner[cut+1:], 10, 64)
	if err != nil || count == 0 {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elem.align, elem.size)
	return wgslTypeLayout{count * stride, elem.align}, true
}

// roundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}
