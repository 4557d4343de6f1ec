package binding

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// MinUniformAlignment is the byte multiple every uniform buffer size is rounded up to.
const MinUniformAlignment = 16

// Binding is one uniform slot of group 0. Its index is fixed by its position in the owning BindingSet.
type Binding interface {
	// Name returns the WGSL identifier the binding is declared as.
	Name() string

	// Index returns the @binding index inside group 0.
	Index() int

	// Declaration returns the WGSL declaration without the group and binding attributes,
	// e.g. "var<uniform> TIME: f32". A placeholder binding returns an empty string.
	Declaration() string

	// Kind returns the uniform type carried by the binding.
	Kind() Kind

	// Size returns the GPU buffer size in bytes, rounded up to MinUniformAlignment.
	Size() uint64

	// Bytes returns the current value bytes padded to Size.
	Bytes() []byte

	// Visibility returns the shader stages the binding is visible to.
	Visibility() wgpu.ShaderStage

	// LayoutEntry returns the bind group layout entry for this binding.
	LayoutEntry() wgpu.BindGroupLayoutEntry

	// Bind returns the bind group entry referencing the binding's buffer.
	// The Buffer is nil for a declaration-only set.
	Bind() wgpu.BindGroupEntry

	// Stage writes the current bytes into the binding's buffer on queue.
	//
	// Parameters:
	//   - queue: the queue to write on
	//
	// Returns:
	//   - error: an error if the write failed
	Stage(queue *wgpu.Queue) error
}

type uniformBinding struct {
	name        string
	index       int
	placeholder bool
	value       Value
	size        uint64
	visibility  wgpu.ShaderStage
	buffer      *wgpu.Buffer
}

var _ Binding = &uniformBinding{}

func newUniformBinding(name string, index int, value Value, placeholder bool) *uniformBinding {
	rawSize, _, ok := shader.TypeLayout(value.Kind().WGSLType())
	if !ok {
		panic(fmt.Sprintf("binding %q has unknown kind %s", name, value.Kind()))
	}
	return &uniformBinding{
		name:        name,
		index:       index,
		placeholder: placeholder,
		value:       value,
		size:        common.AlignUp(MinUniformAlignment, rawSize),
		visibility:  wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
}

func (b *uniformBinding) Name() string {
	return b.name
}

func (b *uniformBinding) Index() int {
	return b.index
}

func (b *uniformBinding) Declaration() string {
	if b.placeholder {
		return ""
	}
	return fmt.Sprintf("var<uniform> %s: %s", b.name, b.value.Kind().WGSLType())
}

func (b *uniformBinding) Kind() Kind {
	return b.value.Kind()
}

func (b *uniformBinding) Size() uint64 {
	return b.size
}

func (b *uniformBinding) Bytes() []byte {
	out := make([]byte, b.size)
	copy(out, b.value.Bytes())
	return out
}

func (b *uniformBinding) Visibility() wgpu.ShaderStage {
	return b.visibility
}

func (b *uniformBinding) LayoutEntry() wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.index),
		Visibility: b.visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingTypeUniform,
			HasDynamicOffset: false,
			MinBindingSize:   b.size,
		},
	}
}

func (b *uniformBinding) Bind() wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{
		Binding: uint32(b.index),
		Buffer:  b.buffer,
		Offset:  0,
		Size:    wgpu.WholeSize,
	}
}

func (b *uniformBinding) Stage(queue *wgpu.Queue) error {
	if b.buffer == nil || queue == nil {
		return nil
	}
	return queue.WriteBuffer(b.buffer, 0, b.Bytes())
}

func (b *uniformBinding) release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}
