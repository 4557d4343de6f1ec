package capture

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is returned by Send after the worker has accepted Exit.
var ErrChannelClosed = errors.New("capture channel closed")

// EncodingError wraps a failure to read back, encode or write a capture.
type EncodingError struct {
	Format string
	Path   string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("encode %s to %s: %v", e.Format, e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
