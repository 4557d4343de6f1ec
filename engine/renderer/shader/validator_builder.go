package shader

// ValidatorBuilderOption is a functional option for configuring a validator.
type ValidatorBuilderOption func(v *validator)

// WithReadFile replaces the function used to read shader files.
//
// Parameters:
//   - readFile: function returning the file contents for a path
//
// Returns:
//   - ValidatorBuilderOption: option function to apply
func WithReadFile(readFile func(path string) ([]byte, error)) ValidatorBuilderOption {
	return func(v *validator) {
		if readFile != nil {
			v.readFile = readFile
		}
	}
}
