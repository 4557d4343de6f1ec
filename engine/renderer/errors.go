package renderer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAdapterNotFound is returned by NewRenderContext when no GPU adapter could be acquired.
	ErrAdapterNotFound = errors.New("no suitable GPU adapter found")

	// ErrNoSurface is returned by Render on a headless context.
	ErrNoSurface = errors.New("render context has no surface")

	// ErrNotMapped is returned by ExtractData when the frame has not been mapped yet.
	ErrNotMapped = errors.New("frame buffer is not mapped")

	// ErrFrameReleased is returned when a frame buffer is used after its data was extracted.
	ErrFrameReleased = errors.New("frame buffer already released")

	// ErrPipelineNotReady is returned when drawing with a pipeline whose GPU objects were never built.
	ErrPipelineNotReady = errors.New("pipeline has no GPU resources")
)

// SurfaceErrorKind classifies a failure to acquire the next surface texture.
type SurfaceErrorKind int

const (
	// SurfaceLost means the surface must be reconfigured.
	SurfaceLost SurfaceErrorKind = iota
	// SurfaceOutdated means the surface no longer matches the window and must be reconfigured.
	SurfaceOutdated
	// SurfaceTimeout means the texture was not available in time. The frame is skipped.
	SurfaceTimeout
	// SurfaceOutOfMemory is unrecoverable.
	SurfaceOutOfMemory
)

func (k SurfaceErrorKind) String() string {
	switch k {
	case SurfaceLost:
		return "lost"
	case SurfaceOutdated:
		return "outdated"
	case SurfaceTimeout:
		return "timeout"
	case SurfaceOutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("SurfaceErrorKind(%d)", int(k))
	}
}

// SurfaceError is returned by Render when the surface texture could not be acquired.
type SurfaceError struct {
	Kind SurfaceErrorKind
	Err  error
}

func (e *SurfaceError) Error() string {
	if e.Err == nil {
		return "surface " + e.Kind.String()
	}
	return fmt.Sprintf("surface %s: %v", e.Kind, e.Err)
}

func (e *SurfaceError) Unwrap() error { return e.Err }

// Recoverable reports whether reconfiguring the surface or skipping the frame is enough.
func (e *SurfaceError) Recoverable() bool {
	return e.Kind != SurfaceOutOfMemory
}

// NeedsReconfigure reports whether the surface must be reconfigured before the next frame.
func (e *SurfaceError) NeedsReconfigure() bool {
	return e.Kind == SurfaceLost || e.Kind == SurfaceOutdated
}

// classifySurfaceError maps a GetCurrentTexture failure onto a SurfaceErrorKind.
// The binding reports the status only as text. Unknown failures are treated as Lost.
func classifySurfaceError(err error) *SurfaceError {
	msg := strings.ToLower(err.Error())
	msg = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(msg)

	kind := SurfaceLost
	switch {
	case strings.Contains(msg, "outofmemory"):
		kind = SurfaceOutOfMemory
	case strings.Contains(msg, "timeout"):
		kind = SurfaceTimeout
	case strings.Contains(msg, "outdated"):
		kind = SurfaceOutdated
	}
	return &SurfaceError{Kind: kind, Err: err}
}
