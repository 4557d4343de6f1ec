package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRequiresOneShader(t *testing.T) {
	for _, args := range [][]string{{}, {"a.wgsl", "b.wgsl"}} {
		cmd := newRootCommand()
		cmd.SetArgs(args)
		cmd.SetOut(new(nopWriter))
		cmd.SetErr(new(nopWriter))
		assert.Error(t, cmd.Execute())
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 1024\nheight = 768\n[capture]\noutput_dir = \"shots\"\n"), 0o644))

	cmd := newRootCommand()
	opts := &options{}
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--height", "200"}))
	opts.configPath, _ = cmd.Flags().GetString("config")
	opts.height, _ = cmd.Flags().GetInt("height")

	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 200, cfg.Window.Height)
	assert.Equal(t, "shots", cfg.Capture.OutputDir)
}

func TestFlagsAreValidated(t *testing.T) {
	cmd := newRootCommand()
	opts := &options{}
	require.NoError(t, cmd.ParseFlags([]string{"--width=-5"}))
	opts.width, _ = cmd.Flags().GetInt("width")

	_, err := loadConfig(cmd, opts)
	assert.ErrorContains(t, err, "window size")
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
