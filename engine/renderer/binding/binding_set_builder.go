package binding

// BindingSetBuilderOption is a functional option used to configure a BindingSet during construction.
// Bindings receive indices in the order their options are applied.
type BindingSetBuilderOption func(*bindingSet)

// WithBinding appends a uniform binding with an initial value. The value's kind fixes the binding's kind.
//
// Parameters:
//   - name: the WGSL identifier
//   - initial: the initial value
//
// Returns:
//   - BindingSetBuilderOption: a function that appends the binding
func WithBinding(name string, initial Value) BindingSetBuilderOption {
	return func(s *bindingSet) {
		s.decls = append(s.decls, bindingDecl{name: name, value: initial})
	}
}

// WithPlaceholder appends a binding that has a buffer and a layout entry but no prelude line.
// It consumes an index so later bindings keep their positions.
//
// Returns:
//   - BindingSetBuilderOption: a function that appends the placeholder
func WithPlaceholder() BindingSetBuilderOption {
	return func(s *bindingSet) {
		s.decls = append(s.decls, bindingDecl{placeholder: true})
	}
}

// DefaultBindings returns the options for the standard preview uniforms:
// TIME (f32), RESOLUTION (vec2<f32>), MOUSE (vec2<f32>) and FRAME (u32).
//
// Returns:
//   - []BindingSetBuilderOption: the options in index order
func DefaultBindings() []BindingSetBuilderOption {
	return []BindingSetBuilderOption{
		WithBinding(NameTime, F32(0)),
		WithBinding(NameResolution, Vec2(0, 0)),
		WithBinding(NameMouse, Vec2(0, 0)),
		WithBinding(NameFrame, U32(0)),
	}
}
