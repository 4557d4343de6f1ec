package capture

import (
	"image"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// StillEncoder writes a single image.
type StillEncoder interface {
	EncodeStill(w io.Writer, img image.Image) error
}

// SequenceEncoder writes a recording to path.
type SequenceEncoder interface {
	// Extension returns the output file extension without the dot.
	Extension() string

	// EncodeSequence writes frames, in order, to path.
	//
	// Parameters:
	//   - path: the output file
	//   - frames: the recorded frames
	//   - res: the requested output size
	//   - rate: the playback rate in frames per second, 0 for the encoder default
	//
	// Returns:
	//   - error: an encoding or IO error
	EncodeSequence(path string, frames []RawFrame, res Resolution, rate float64) error
}

// StillEncoderFunc adapts a function to StillEncoder.
type StillEncoderFunc func(w io.Writer, img image.Image) error

func (f StillEncoderFunc) EncodeStill(w io.Writer, img image.Image) error {
	return f(w, img)
}

// defaultStillEncoders maps each still format to its encoder.
func defaultStillEncoders() map[StillFormat]StillEncoder {
	return map[StillFormat]StillEncoder{
		StillPNG: StillEncoderFunc(png.Encode),
		StillBMP: StillEncoderFunc(bmp.Encode),
		StillTIFF: StillEncoderFunc(func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}),
	}
}
