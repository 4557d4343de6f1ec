package capture

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"math"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"golang.org/x/image/draw"
)

// GifEncoder quantizes frames to the Plan 9 palette in parallel and writes a looping GIF.
type GifEncoder struct {
	pool     worker.DynamicWorkerPool
	rate     float64
	maxWidth int
}

var _ SequenceEncoder = &GifEncoder{}

// NewGifEncoder creates a GIF encoder.
//
// Parameters:
//   - rate: frames per second used for the frame delay when a save does not give one
//   - maxWidth: frames wider than this are downscaled, 0 disables downscaling
//   - workers: the number of quantizing goroutines, 0 picks one less than the CPU count
//
// Returns:
//   - *GifEncoder: the encoder
func NewGifEncoder(rate float64, maxWidth, workers int) *GifEncoder {
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	if rate <= 0 {
		rate = 30
	}
	return &GifEncoder{
		// Idle workers exit after one second.
		pool:     worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		rate:     rate,
		maxWidth: maxWidth,
	}
}

func (e *GifEncoder) Extension() string {
	return "gif"
}

// OutputSize returns the GIF canvas size for res after applying the width cap.
//
// Parameters:
//   - res: the requested resolution
//
// Returns:
//   - Resolution: the canvas size
func (e *GifEncoder) OutputSize(res Resolution) Resolution {
	if e.maxWidth <= 0 || res.Width <= e.maxWidth {
		return res
	}
	h := int(math.Round(float64(res.Height) * float64(e.maxWidth) / float64(res.Width)))
	return Resolution{Width: e.maxWidth, Height: max(h, 1)}
}

// Delay returns the per-frame delay in hundredths of a second for rate.
func (e *GifEncoder) Delay(rate float64) int {
	if rate <= 0 {
		rate = e.rate
	}
	return max(int(math.Round(100/rate)), 1)
}

func (e *GifEncoder) EncodeSequence(path string, frames []RawFrame, res Resolution, rate float64) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if res.Width <= 0 || res.Height <= 0 {
		res = Resolution{Width: frames[0].Width, Height: frames[0].Height}
	}
	size := e.OutputSize(res)
	delay := e.Delay(rate)

	images := e.quantize(frames, size)
	anim := &gif.GIF{
		Image:     images,
		Delay:     make([]int, len(images)),
		Disposal:  make([]byte, len(images)),
		LoopCount: 0,
		Config: image.Config{
			ColorModel: color.Palette(palette.Plan9),
			Width:      size.Width,
			Height:     size.Height,
		},
	}
	for i := range anim.Delay {
		anim.Delay[i] = delay
		anim.Disposal[i] = gif.DisposalNone
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := gif.EncodeAll(w, anim); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// quantize converts every frame to a paletted image of the given size using the worker pool.
// Output order matches frames.
func (e *GifEncoder) quantize(frames []RawFrame, size Resolution) []*image.Paletted {
	out := make([]*image.Paletted, len(frames))
	bounds := image.Rect(0, 0, size.Width, size.Height)

	var wg sync.WaitGroup
	for i, frame := range frames {
		wg.Add(1)
		id := i
		src := frame
		e.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()

				var img image.Image = src.Image()
				if src.Width != size.Width || src.Height != size.Height {
					scaled := image.NewRGBA(bounds)
					draw.ApproxBiLinear.Scale(scaled, bounds, img, img.Bounds(), draw.Src, nil)
					img = scaled
				}
				paletted := image.NewPaletted(bounds, palette.Plan9)
				draw.FloydSteinberg.Draw(paletted, bounds, img, image.Point{})
				out[id] = paletted
				return nil, nil
			},
		})
	}
	wg.Wait()
	return out
}
