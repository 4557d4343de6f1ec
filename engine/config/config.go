// Package config loads the preview configuration from TOML and applies defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-preview/engine/capture"
	"github.com/mattn/go-shellwords"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the config file looked up when no explicit path is given.
const DefaultPath = "oxy-preview.toml"

// Config is the full preview configuration.
type Config struct {
	Window  WindowConfig  `toml:"window"`
	Capture CaptureConfig `toml:"capture"`
	Watch   WatchConfig   `toml:"watch"`
	Log     LogConfig     `toml:"log"`
}

// WindowConfig controls the preview window and surface.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	// VSync selects the FIFO present mode instead of immediate presentation.
	VSync bool `toml:"vsync"`
	// ForceFallbackAdapter requests a software adapter.
	ForceFallbackAdapter bool `toml:"force_fallback_adapter"`
	// MaxFPS caps the render loop; 0 leaves it uncapped.
	MaxFPS float64 `toml:"max_fps"`
}

// CaptureConfig controls capture outputs and encoders.
type CaptureConfig struct {
	OutputDir string `toml:"output_dir"`
	// StillFormat is one of png, bmp, tiff (or tif).
	StillFormat string `toml:"still_format"`
	// MaxFrames caps the recording buffer; 0 means unbounded.
	MaxFrames int `toml:"max_frames"`
	// GifFrameRate sets the GIF frame delay as 100/rate centiseconds.
	GifFrameRate float64 `toml:"gif_frame_rate"`
	// GifMaxWidth downscales GIF frames wider than this; 0 keeps full size.
	GifMaxWidth int `toml:"gif_max_width"`
	// GifWorkers is the number of goroutines quantizing GIF frames.
	GifWorkers int `toml:"gif_workers"`
	FFmpegPath string `toml:"ffmpeg_path"`
	Codec      string `toml:"codec"`
	// FFmpegArgs is a shell-style string of extra output arguments.
	FFmpegArgs string `toml:"ffmpeg_args"`
}

// WatchConfig controls shader file watching.
type WatchConfig struct {
	PollIntervalMs int  `toml:"poll_interval_ms"`
	ClearTerminal  bool `toml:"clear_terminal"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
//
// Returns:
//   - Config: configuration with every field set to its default
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "oxy-preview",
			Width:  800,
			Height: 600,
			VSync:  true,
		},
		Capture: CaptureConfig{
			OutputDir:    ".",
			StillFormat:  "png",
			MaxFrames:    1800,
			GifFrameRate: 30,
			GifWorkers:   0,
			FFmpegPath:   "ffmpeg",
			Codec:        "libx264",
		},
		Watch: WatchConfig{
			PollIntervalMs: 500,
			ClearTerminal:  true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file over the defaults.
// An empty path loads DefaultPath if it exists and otherwise returns the defaults.
// An explicit path that does not exist is an error.
//
// Parameters:
//   - path: config file path, or "" for the implicit default
//
// Returns:
//   - Config: the merged configuration
//   - error: read, decode or validation failure
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return cfg, fmt.Errorf("decode config %q at %d:%d: %w", path, row, col, err)
		}
		return cfg, fmt.Errorf("decode config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
//
// Returns:
//   - error: the first invalid field, or nil
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Window.MaxFPS < 0 {
		return fmt.Errorf("max_fps must not be negative")
	}
	if _, err := capture.ParseStillFormat(c.Capture.StillFormat); err != nil {
		return fmt.Errorf("still_format: %w", err)
	}
	if c.Capture.MaxFrames < 0 {
		return fmt.Errorf("max_frames must not be negative")
	}
	if c.Capture.GifFrameRate <= 0 {
		return fmt.Errorf("gif_frame_rate must be positive")
	}
	if c.Watch.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive")
	}
	if _, err := c.FFmpegExtraArgs(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// FFmpegExtraArgs splits the configured extra ffmpeg arguments like a shell would.
//
// Returns:
//   - []string: the split arguments
//   - error: unbalanced quotes or similar syntax errors
func (c Config) FFmpegExtraArgs() ([]string, error) {
	args, err := shellwords.Parse(c.Capture.FFmpegArgs)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg_args: %w", err)
	}
	return args, nil
}

// PollInterval returns the watcher poll interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalMs) * time.Millisecond
}

// ParseLevel maps a level name to a slog level.
//
// Parameters:
//   - level: one of debug, info, warn, error (case-insensitive)
//
// Returns:
//   - slog.Level: the parsed level
//   - error: unknown level name
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", level, err)
	}
	return l, nil
}
