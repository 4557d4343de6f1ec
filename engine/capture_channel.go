package engine

import (
	"github.com/Carmen-Shannon/oxy-preview/engine/capture"
	"github.com/Carmen-Shannon/oxy-preview/engine/config"
)

// newCaptureChannel starts a capture channel configured from cfg.
// Options in extra are applied after the configured ones.
//
// Parameters:
//   - cfg: the preview configuration
//   - extra: additional channel options
//
// Returns:
//   - capture.Channel: the running channel
//   - error: an error if the ffmpeg arguments do not parse
func newCaptureChannel(cfg config.Config, extra ...capture.ChannelBuilderOption) (capture.Channel, error) {
	ffmpegArgs, err := cfg.FFmpegExtraArgs()
	if err != nil {
		return nil, err
	}
	opts := []capture.ChannelBuilderOption{
		capture.WithOutputDir(cfg.Capture.OutputDir),
		capture.WithMaxFrames(cfg.Capture.MaxFrames),
		capture.WithGifEncoder(capture.NewGifEncoder(cfg.Capture.GifFrameRate, cfg.Capture.GifMaxWidth, cfg.Capture.GifWorkers)),
		capture.WithMp4Encoder(capture.NewFFmpegEncoder(cfg.Capture.FFmpegPath, cfg.Capture.Codec, ffmpegArgs)),
	}
	return capture.NewChannel(append(opts, extra...)...), nil
}
