package renderer

import (
	"context"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// BytesPerPixel is the size of one RGBA8 texel.
const BytesPerPixel = 4

// BufferDimensions is the row layout of a texture copied into a buffer.
// Rows in the buffer are padded to wgpu.CopyBytesPerRowAlignment.
type BufferDimensions struct {
	Width               int
	Height              int
	UnpaddedBytesPerRow uint32
	PaddedBytesPerRow   uint32
	Padding             uint32
	Size                uint64
}

// NewBufferDimensions computes the padded row layout for an RGBA8 image.
//
// Parameters:
//   - width: the image width in pixels
//   - height: the image height in pixels
//
// Returns:
//   - BufferDimensions: the layout
func NewBufferDimensions(width, height int) BufferDimensions {
	unpadded := uint32(width * BytesPerPixel)
	padded := uint32(common.AlignUp(uint64(wgpu.CopyBytesPerRowAlignment), uint64(unpadded)))
	return BufferDimensions{
		Width:               width,
		Height:              height,
		UnpaddedBytesPerRow: unpadded,
		PaddedBytesPerRow:   padded,
		Padding:             padded - unpadded,
		Size:                uint64(padded) * uint64(height),
	}
}

// StripPadding copies the unpadded part of every row out of data.
//
// Parameters:
//   - data: the padded buffer contents, at least d.Size bytes
//   - d: the layout of data
//
// Returns:
//   - []byte: exactly Width*Height*4 tightly packed bytes
func StripPadding(data []byte, d BufferDimensions) []byte {
	row := int(d.UnpaddedBytesPerRow)
	stride := int(d.PaddedBytesPerRow)
	out := make([]byte, row*d.Height)
	for y := range d.Height {
		copy(out[y*row:(y+1)*row], data[y*stride:y*stride+row])
	}
	return out
}

// FrameBuffer is a GPU readback buffer holding one rendered frame.
// It is single use: MapRead, then ExtractData exactly once.
type FrameBuffer interface {
	// Width returns the frame width in pixels.
	Width() int

	// Height returns the frame height in pixels.
	Height() int

	// Dimensions returns the padded buffer layout.
	Dimensions() BufferDimensions

	// MapRead maps the buffer for reading, waiting only on the submission that filled it.
	// Calling it again after a successful map is a no-op.
	//
	// Parameters:
	//   - ctx: cancels the wait
	//
	// Returns:
	//   - error: ctx.Err(), a mapping failure, or ErrFrameReleased
	MapRead(ctx context.Context) error

	// ExtractData returns the tightly packed RGBA8 pixels and releases the buffer.
	//
	// Returns:
	//   - []byte: Width*Height*4 bytes, rows top to bottom
	//   - error: ErrNotMapped before MapRead completed, ErrFrameReleased after a previous extract
	ExtractData() ([]byte, error)

	// Release frees the buffer without reading it.
	Release()
}

type frameState int

const (
	framePending frameState = iota
	frameMapping
	frameMapped
	frameReleased
)

// frameBuffer is the unexported implementation of FrameBuffer.
type frameBuffer struct {
	mu *sync.Mutex

	device     *wgpu.Device
	queue      *wgpu.Queue
	buffer     *wgpu.Buffer
	submission wgpu.SubmissionIndex
	dims       BufferDimensions

	state  frameState
	status chan wgpu.BufferMapAsyncStatus
}

var _ FrameBuffer = &frameBuffer{}

func newFrameBuffer(device *wgpu.Device, queue *wgpu.Queue, buffer *wgpu.Buffer, dims BufferDimensions, submission wgpu.SubmissionIndex) *frameBuffer {
	return &frameBuffer{
		mu:         &sync.Mutex{},
		device:     device,
		queue:      queue,
		buffer:     buffer,
		submission: submission,
		dims:       dims,
		state:      framePending,
	}
}

func (f *frameBuffer) Width() int {
	return f.dims.Width
}

func (f *frameBuffer) Height() int {
	return f.dims.Height
}

func (f *frameBuffer) Dimensions() BufferDimensions {
	return f.dims
}

func (f *frameBuffer) MapRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case frameMapped:
		return nil
	case frameReleased:
		return ErrFrameReleased
	case framePending:
		f.status = make(chan wgpu.BufferMapAsyncStatus, 1)
		status := f.status
		err := f.buffer.MapAsync(wgpu.MapModeRead, 0, f.dims.Size, func(s wgpu.BufferMapAsyncStatus) {
			status <- s
		})
		if err != nil {
			return fmt.Errorf("map frame buffer: %w", err)
		}
		f.state = frameMapping
	}

	index := &wgpu.WrappedSubmissionIndex{Queue: f.queue, SubmissionIndex: f.submission}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.device.Poll(true, index)
		select {
		case s := <-f.status:
			if s != wgpu.BufferMapAsyncStatusSuccess {
				f.state = framePending
				return fmt.Errorf("map frame buffer: status %v", s)
			}
			f.state = frameMapped
			return nil
		default:
		}
	}
}

func (f *frameBuffer) ExtractData() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case frameReleased:
		return nil, ErrFrameReleased
	case frameMapped:
	default:
		return nil, ErrNotMapped
	}

	mapped := f.buffer.GetMappedRange(0, uint(f.dims.Size))
	data := StripPadding(mapped, f.dims)
	f.buffer.Unmap()
	f.buffer.Release()
	f.buffer = nil
	f.state = frameReleased
	return data, nil
}

func (f *frameBuffer) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == frameReleased {
		return
	}
	if f.buffer != nil {
		if f.state == frameMapped {
			f.buffer.Unmap()
		}
		f.buffer.Release()
		f.buffer = nil
	}
	f.state = frameReleased
}
