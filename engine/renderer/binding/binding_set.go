package binding

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Names of the default bindings.
const (
	NameTime       = "TIME"
	NameResolution = "RESOLUTION"
	NameMouse      = "MOUSE"
	NameFrame      = "FRAME"
)

// ErrUnknownBinding is returned by Update when no binding has the given name.
var ErrUnknownBinding = errors.New("unknown binding")

// KindMismatchError is returned by Update when the value kind differs from the binding kind.
type KindMismatchError struct {
	Name string
	Want Kind
	Got  Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("binding %s is %s, got %s", e.Name, e.Want, e.Got)
}

// BindingSet is the ordered collection of uniforms exposed to every user shader in group 0.
//
// The prelude, the layout entries and the bind group entries are all derived from the same
// ordered slice, so the binding index declared in the prelude always matches the layout.
type BindingSet interface {
	shader.PreludeProvider

	// Bindings returns the bindings in index order.
	//
	// Returns:
	//   - []Binding: the bindings
	Bindings() []Binding

	// Lookup finds a binding by name.
	//
	// Parameters:
	//   - name: the WGSL identifier
	//
	// Returns:
	//   - Binding: the binding or nil
	//   - bool: whether it was found
	Lookup(name string) (Binding, bool)

	// Update replaces the value of a named binding and writes it to the GPU queue immediately.
	//
	// Parameters:
	//   - name: the WGSL identifier
	//   - value: the new value, its kind must match the binding kind
	//
	// Returns:
	//   - error: ErrUnknownBinding, a *KindMismatchError, or a queue write error
	Update(name string, value Value) error

	// LayoutEntries returns one layout entry per binding, in index order.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutEntry: the layout entries
	LayoutEntries() []wgpu.BindGroupLayoutEntry

	// CreateLayout creates the group 0 bind group layout.
	//
	// Parameters:
	//   - device: the device to create it on
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, owned by the caller
	//   - error: an error if creation failed
	CreateLayout(device *wgpu.Device) (*wgpu.BindGroupLayout, error)

	// CreateBindGroup creates a bind group for layout referencing the set's buffers.
	//
	// Parameters:
	//   - device: the device to create it on
	//   - layout: a layout created by CreateLayout
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group, owned by the caller
	//   - error: an error if creation failed or the set has no GPU buffers
	CreateBindGroup(device *wgpu.Device, layout *wgpu.BindGroupLayout) (*wgpu.BindGroup, error)

	// Release releases the GPU buffers held by the set.
	Release()
}

// bindingLabel prefixes the debug labels of the GPU objects.
const bindingLabel = "Preview Bindings"

// bindingSet is the unexported implementation of BindingSet.
type bindingSet struct {
	mu *sync.Mutex

	decls    []bindingDecl
	bindings []*uniformBinding
	byName   map[string]*uniformBinding
	queue    *wgpu.Queue
}

type bindingDecl struct {
	name        string
	value       Value
	placeholder bool
}

var _ BindingSet = &bindingSet{}

// NewBindingSet builds a BindingSet and allocates one uniform buffer per binding on device.
// A nil device builds a declaration-only set, useful for validation without a GPU.
//
// Parameters:
//   - device: the device to allocate on, or nil
//   - options: the bindings, see DefaultBindings
//
// Returns:
//   - BindingSet: the new set
//   - error: an error if a buffer could not be created
func NewBindingSet(device *wgpu.Device, options ...BindingSetBuilderOption) (BindingSet, error) {
	s := &bindingSet{
		mu:     &sync.Mutex{},
		byName: make(map[string]*uniformBinding),
	}
	for _, opt := range options {
		opt(s)
	}

	for i, decl := range s.decls {
		b := newUniformBinding(decl.name, i, decl.value, decl.placeholder)
		if !decl.placeholder {
			if _, dup := s.byName[decl.name]; dup {
				panic(fmt.Sprintf("duplicate binding name %q", decl.name))
			}
			s.byName[decl.name] = b
		}
		s.bindings = append(s.bindings, b)
	}
	s.decls = nil

	if device == nil {
		return s, nil
	}

	s.queue = device.GetQueue()
	for _, b := range s.bindings {
		buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            fmt.Sprintf("%s %d", bindingLabel, b.index),
			Size:             b.size,
			Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			s.Release()
			return nil, fmt.Errorf("create uniform buffer %d: %w", b.index, err)
		}
		b.buffer = buf
		if err := b.Stage(s.queue); err != nil {
			s.Release()
			return nil, fmt.Errorf("stage uniform buffer %d: %w", b.index, err)
		}
	}
	return s, nil
}

func (s *bindingSet) Prelude() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	for _, b := range s.bindings {
		decl := b.Declaration()
		if decl == "" {
			continue
		}
		fmt.Fprintf(&sb, "@group(%d) @binding(%d) %s;\n", shader.PreludeGroup, b.index, decl)
	}
	return sb.String()
}

func (s *bindingSet) Bindings() []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Binding, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = b
	}
	return out
}

func (s *bindingSet) Lookup(name string) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return b, true
}

func (s *bindingSet) Update(name string, value Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBinding, name)
	}
	if b.Kind() != value.Kind() {
		return &KindMismatchError{Name: name, Want: b.Kind(), Got: value.Kind()}
	}
	b.value = value
	return b.Stage(s.queue)
}

func (s *bindingSet) LayoutEntries() []wgpu.BindGroupLayoutEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]wgpu.BindGroupLayoutEntry, len(s.bindings))
	for i, b := range s.bindings {
		entries[i] = b.LayoutEntry()
	}
	return entries
}

func (s *bindingSet) CreateLayout(device *wgpu.Device) (*wgpu.BindGroupLayout, error) {
	entries := s.LayoutEntries()
	return device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   bindingLabel + " Layout",
		Entries: entries,
	})
}

func (s *bindingSet) CreateBindGroup(device *wgpu.Device, layout *wgpu.BindGroupLayout) (*wgpu.BindGroup, error) {
	s.mu.Lock()
	entries := make([]wgpu.BindGroupEntry, len(s.bindings))
	for i, b := range s.bindings {
		if b.buffer == nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("binding %d has no buffer", b.index)
		}
		entries[i] = b.Bind()
	}
	s.mu.Unlock()

	return device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   bindingLabel + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
}

func (s *bindingSet) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bindings {
		b.release()
	}
}
