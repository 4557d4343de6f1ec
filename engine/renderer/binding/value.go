package binding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind enumerates the uniform types a Binding can carry.
type Kind int

const (
	KindF32 Kind = iota
	KindU32
	KindVec2F32
	KindVec4F32
)

var kindWGSLTypes = map[Kind]string{
	KindF32:     "f32",
	KindU32:     "u32",
	KindVec2F32: "vec2<f32>",
	KindVec4F32: "vec4<f32>",
}

var kindComponents = map[Kind]int{
	KindF32:     1,
	KindU32:     1,
	KindVec2F32: 2,
	KindVec4F32: 4,
}

// WGSLType returns the WGSL type name used in the prelude declaration for this kind.
//
// Returns:
//   - string: the WGSL type, or an empty string for an unknown kind
func (k Kind) WGSLType() string {
	return kindWGSLTypes[k]
}

func (k Kind) String() string {
	if t, ok := kindWGSLTypes[k]; ok {
		return t
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a tagged uniform value. The zero Value is an f32 zero.
type Value struct {
	kind  Kind
	words [4]uint32
}

// F32 returns a scalar float value.
func F32(v float32) Value {
	return Value{kind: KindF32, words: [4]uint32{math.Float32bits(v)}}
}

// U32 returns a scalar unsigned value.
func U32(v uint32) Value {
	return Value{kind: KindU32, words: [4]uint32{v}}
}

// Vec2 returns a two component float vector value.
func Vec2(x, y float32) Value {
	return Value{kind: KindVec2F32, words: [4]uint32{math.Float32bits(x), math.Float32bits(y)}}
}

// Vec4 returns a four component float vector value.
func Vec4(x, y, z, w float32) Value {
	return Value{kind: KindVec4F32, words: [4]uint32{
		math.Float32bits(x), math.Float32bits(y), math.Float32bits(z), math.Float32bits(w),
	}}
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Float32s returns the float components of the value. U32 values are converted.
func (v Value) Float32s() []float32 {
	n := kindComponents[v.kind]
	out := make([]float32, n)
	for i := range n {
		if v.kind == KindU32 {
			out[i] = float32(v.words[i])
			continue
		}
		out[i] = math.Float32frombits(v.words[i])
	}
	return out
}

// Bytes returns the raw little-endian representation of the value as the GPU reads it.
//
// Returns:
//   - []byte: 4 bytes per component
func (v Value) Bytes() []byte {
	n := kindComponents[v.kind]
	out := make([]byte, 4*n)
	for i := range n {
		binary.LittleEndian.PutUint32(out[4*i:], v.words[i])
	}
	return out
}
