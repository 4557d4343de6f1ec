package capture

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Frame is a rendered frame waiting for GPU readback. The capture worker owns a Frame from the
// moment it is sent and either extracts or releases it exactly once.
type Frame interface {
	Width() int
	Height() int
	MapRead(ctx context.Context) error
	ExtractData() ([]byte, error)
	Release()
}

// Resolution is the output size in pixels requested by a save message.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// RawFrame is one decoded frame: tightly packed RGBA8 rows, top to bottom.
type RawFrame struct {
	Width  int
	Height int
	Pix    []byte
}

// Image wraps the frame pixels without copying.
//
// Returns:
//   - *image.RGBA: an image sharing Pix
func (f RawFrame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// StillFormat selects the single-image encoder.
type StillFormat int

const (
	StillPNG StillFormat = iota
	StillBMP
	StillTIFF
)

// Extension returns the file extension for the format, without the dot.
func (f StillFormat) Extension() string {
	switch f {
	case StillBMP:
		return "bmp"
	case StillTIFF:
		return "tiff"
	default:
		return "png"
	}
}

func (f StillFormat) String() string {
	return f.Extension()
}

// ParseStillFormat maps png, bmp or tiff (case-insensitive) to a StillFormat.
//
// Parameters:
//   - name: the format name
//
// Returns:
//   - StillFormat: the parsed format
//   - error: an error for any other name
func ParseStillFormat(name string) (StillFormat, error) {
	switch strings.ToLower(name) {
	case "png", "":
		return StillPNG, nil
	case "bmp":
		return StillBMP, nil
	case "tiff", "tif":
		return StillTIFF, nil
	default:
		return StillPNG, fmt.Errorf("unsupported still format %q", name)
	}
}

// Message is a request processed by the capture worker, in send order.
type Message interface {
	messageName() string
}

// ExtractData reads Frame back and appends it to the recording.
type ExtractData struct {
	Frame Frame
}

// SavePng reads Frame back and writes it as a PNG, scaled to Resolution when that is set and
// differs from the frame. The recording is not touched.
type SavePng struct {
	Frame      Frame
	Resolution Resolution
}

// SaveStill reads Frame back and writes it in Format, scaled like SavePng. The recording is
// not touched.
type SaveStill struct {
	Frame      Frame
	Resolution Resolution
	Format     StillFormat
}

// SaveGif encodes the recording as a looping GIF and clears it. A zero Rate uses the
// encoder's configured rate.
type SaveGif struct {
	Rate       float64
	Resolution Resolution
}

// SaveMp4 encodes the recording as an MP4 at Rate frames per second and clears it.
type SaveMp4 struct {
	Rate       float64
	Resolution Resolution
}

// Exit stops the worker. Messages sent afterwards are rejected.
type Exit struct{}

func (ExtractData) messageName() string { return "extract_data" }
func (SavePng) messageName() string     { return "save_png" }
func (SaveStill) messageName() string   { return "save_still" }
func (SaveGif) messageName() string     { return "save_gif" }
func (SaveMp4) messageName() string     { return "save_mp4" }
func (Exit) messageName() string        { return "exit" }
