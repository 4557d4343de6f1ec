// Command oxy-preview renders a WGSL fragment shader live and reloads it on every save.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"github.com/Carmen-Shannon/oxy-preview/engine"
	"github.com/Carmen-Shannon/oxy-preview/engine/config"
	"github.com/spf13/cobra"
)

func init() {
	// GLFW must run on the process's main thread.
	runtime.LockOSThread()
}

type options struct {
	configPath string
	width      int
	height     int
	outputDir  string
	logLevel   string
	profile    bool

	headless bool
	frames   int
	rate     float64
	format   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "oxy-preview:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "oxy-preview [flags] <shader.wgsl>",
		Short: "Live preview and capture for WGSL fragment shaders",
		Long: `oxy-preview renders a WGSL fragment shader in a window and reloads it whenever the file changes.

Uniforms TIME, RESOLUTION, MOUSE and FRAME are declared for the shader. A vertex stage
is generated when the file has no vs_main.

Keys: F5 still, F6 start/stop recording, F7 save GIF, F8 save MP4, R reload, Esc quit.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cfg, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultPath+" if present)")
	f.IntVar(&opts.width, "width", 0, "window or render width in pixels")
	f.IntVar(&opts.height, "height", 0, "window or render height in pixels")
	f.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for captured files")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	f.BoolVar(&opts.profile, "profile", false, "log frame and memory statistics at debug level")
	f.BoolVar(&opts.headless, "headless", false, "render offscreen without a window and exit")
	f.IntVar(&opts.frames, "frames", 60, "headless: number of frames to render")
	f.Float64Var(&opts.rate, "rate", 30, "headless: frames per second of shader time")
	f.StringVar(&opts.format, "format", "gif", "headless: gif, mp4, png, bmp or tiff")
	return cmd
}

// loadConfig reads the config file and applies the flags that were set on the command line.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	f := cmd.Flags()
	if f.Changed("width") {
		cfg.Window.Width = opts.width
	}
	if f.Changed("height") {
		cfg.Window.Height = opts.height
	}
	if f.Changed("output-dir") {
		cfg.Capture.OutputDir = opts.outputDir
	}
	if f.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(cfg config.Config, opts *options, shaderPath string) error {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if opts.headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return engine.RunBatch(ctx, shaderPath, cfg, engine.BatchOptions{
			Frames: opts.frames,
			Rate:   opts.rate,
			Format: opts.format,
			Width:  cfg.Window.Width,
			Height: cfg.Window.Height,
		})
	}

	eng, err := engine.NewEngine(shaderPath,
		engine.WithConfig(cfg),
		engine.WithProfiling(opts.profile),
	)
	if err != nil {
		return err
	}
	return eng.Run()
}
