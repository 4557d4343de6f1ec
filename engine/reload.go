package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-preview/common"
	"github.com/Carmen-Shannon/oxy-preview/engine/renderer/shader"
)

// pipelineTarget accepts validated programs.
type pipelineTarget interface {
	Rebuild(source shader.ValidatedSource) error
}

// reloader re-validates the shader file and swaps the pipeline when it is good.
type reloader struct {
	path      string
	validator shader.Validator
	target    pipelineTarget

	clearTerminal bool
	// out receives the human readable report of a failed reload.
	out io.Writer
	log *slog.Logger
}

func newReloader(path string, v shader.Validator, target pipelineTarget, clearTerminal bool, out io.Writer) *reloader {
	return &reloader{
		path:          path,
		validator:     v,
		target:        target,
		clearTerminal: clearTerminal,
		out:           out,
		log:           common.ComponentLogger("preview"),
	}
}

// reload validates the file and rebuilds the pipeline from it.
// On failure the previous pipeline keeps rendering.
//
// Returns:
//   - bool: true if the new program is now active
func (r *reloader) reload() bool {
	if r.clearTerminal {
		common.ClearScreen()
	}

	src, err := r.validator.ValidateFile(r.path)
	if err != nil {
		r.report(err)
		return false
	}
	if err := r.target.Rebuild(src); err != nil {
		r.validator.Reject(src, err)
		r.log.Error("pipeline rebuild failed", "path", r.path, "error", err)
		fmt.Fprintf(r.out, "%s: pipeline: %v\n", r.path, err)
		return false
	}
	r.log.Info("shader loaded", "path", r.path, "synthesized_vertex", src.SynthesizedVertex())
	return true
}

func (r *reloader) report(err error) {
	r.log.Warn("shader rejected", "path", r.path, "state", r.validator.State(), "error", err)

	fmt.Fprintln(r.out, err)
	if excerpt := errorContext(err); excerpt != "" {
		fmt.Fprintln(r.out, excerpt)
	}
}

// errorContext returns the source excerpt attached to err, if any.
func errorContext(err error) string {
	var perr *shader.ParseError
	if errors.As(err, &perr) {
		return perr.Context
	}
	var verr *shader.ValidationError
	if errors.As(err, &verr) {
		return verr.Context
	}
	return ""
}
