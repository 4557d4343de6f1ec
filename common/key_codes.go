package common

// Virtual key codes used by the preview window.
// These values match GLFW key codes.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyEsc = 256 // Escape key (GLFW)
	KeyF5  = 294 // F5 (GLFW)
	KeyF6  = 295 // F6 (GLFW)
	KeyF7  = 296 // F7 (GLFW)
	KeyF8  = 297 // F8 (GLFW)
	KeyR   = 82  // R key (ASCII)
)
