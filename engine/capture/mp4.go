package capture

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-preview/common"
)

// DefaultMp4Rate is used when a SaveMp4 carries no measured rate.
const DefaultMp4Rate = 30

// evenPadFilter pads odd frame sizes by one pixel; yuv420p needs even dimensions.
const evenPadFilter = "pad=ceil(iw/2)*2:ceil(ih/2)*2"

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg process that writes an MP4.
type FFmpegEncoder struct {
	path      string
	codec     string
	extraArgs []string
}

var _ SequenceEncoder = &FFmpegEncoder{}

// NewFFmpegEncoder creates an encoder that runs the ffmpeg binary at path.
//
// Parameters:
//   - path: the ffmpeg executable, resolved through PATH if it has no separator
//   - codec: the video codec passed to -c:v
//   - extraArgs: output arguments inserted before the file name
//
// Returns:
//   - *FFmpegEncoder: the encoder
func NewFFmpegEncoder(path, codec string, extraArgs []string) *FFmpegEncoder {
	return &FFmpegEncoder{
		path:      common.Coalesce(path, "ffmpeg"),
		codec:     common.Coalesce(codec, "libx264"),
		extraArgs: extraArgs,
	}
}

func (e *FFmpegEncoder) Extension() string {
	return "mp4"
}

// Args returns the ffmpeg command line (without the executable) for one encode.
//
// Parameters:
//   - out: the output file
//   - res: the raw frame size; odd sizes are padded to even
//   - rate: the frame rate, DefaultMp4Rate when not positive
//
// Returns:
//   - []string: the arguments
func (e *FFmpegEncoder) Args(out string, res Resolution, rate float64) []string {
	if rate <= 0 {
		rate = DefaultMp4Rate
	}
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", res.Width, res.Height),
		"-r", strconv.FormatFloat(rate, 'f', 2, 64),
		"-i", "-",
		"-an",
		"-c:v", e.codec,
		"-pix_fmt", "yuv420p",
	}
	if res.Width%2 != 0 || res.Height%2 != 0 {
		args = append(args, "-vf", evenPadFilter)
	}
	args = append(args, e.extraArgs...)
	return append(args, out)
}

func (e *FFmpegEncoder) EncodeSequence(path string, frames []RawFrame, res Resolution, rate float64) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if res.Width <= 0 || res.Height <= 0 {
		res = Resolution{Width: frames[0].Width, Height: frames[0].Height}
	}

	cmd := exec.Command(e.path, e.Args(path, res, rate)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", strings.Join(cmd.Args, " "), err)
	}

	skipped := 0
	var writeErr error
	for _, f := range frames {
		if f.Width != res.Width || f.Height != res.Height {
			skipped++
			continue
		}
		if _, writeErr = stdin.Write(f.Pix); writeErr != nil {
			break
		}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w\n%s", e.path, err, tail(stderr.String(), 20))
	}
	if writeErr != nil {
		return fmt.Errorf("write frames to %s: %w", e.path, writeErr)
	}
	if skipped == len(frames) {
		return fmt.Errorf("no frame matched %s", res)
	}
	if skipped > 0 {
		common.ComponentLogger("capture").Warn("skipped frames with a different size", "skipped", skipped, "frames", len(frames), "resolution", res.String())
	}
	return nil
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
