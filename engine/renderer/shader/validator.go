package shader

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/wgsl"
)

// State is the validator's position in the reload state machine.
type State int

const (
	// StateUnvalidated means no user source has been validated yet; the fallback program is active.
	StateUnvalidated State = iota
	// StateValid means the most recent reload produced a usable program.
	StateValid
	// StateInvalid means the most recent reload failed; the previous program stays active.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// PreludeProvider supplies the binding declarations prepended to every program.
type PreludeProvider interface {
	// Prelude returns the declaration lines, each terminated by a newline.
	Prelude() string
}

// Validator turns shader text into ValidatedSource values.
// A failed validation never replaces the last good program.
type Validator interface {
	// ValidateFile reads path and validates its contents.
	//
	// Parameters:
	//   - path: the shader file to read
	//
	// Returns:
	//   - ValidatedSource: the validated program on success
	//   - error: *IOError, *ParseError, *ValidationError or *MissingEntryPointError
	ValidateFile(path string) (ValidatedSource, error)

	// ValidateSource validates in-memory shader text.
	//
	// Parameters:
	//   - path: name used in diagnostics
	//   - text: the user's WGSL source, without the prelude
	//
	// Returns:
	//   - ValidatedSource: the validated program on success
	//   - error: *ParseError, *ValidationError or *MissingEntryPointError
	ValidateSource(path, text string) (ValidatedSource, error)

	// Fallback returns the baked-in clear-color program.
	Fallback() ValidatedSource

	// Current returns the program rendering should use: the last valid user program,
	// or the fallback before any user program validated.
	Current() ValidatedSource

	// State returns the current state.
	State() State

	// LastError returns the error of the most recent failed validation, or nil in StateValid.
	LastError() error

	// Reject withdraws a program that validated but could not be used, for example because the
	// GPU refused to build a pipeline from it. If src is Current, the program it replaced becomes
	// Current again. The state moves to StateInvalid with err as LastError.
	//
	// Parameters:
	//   - src: the program returned by a previous ValidateFile or ValidateSource
	//   - err: why the program could not be used
	Reject(src ValidatedSource, err error)
}

type validator struct {
	mu       *sync.Mutex
	prelude  PreludeProvider
	readFile func(string) ([]byte, error)

	fallback ValidatedSource
	current  ValidatedSource
	// previous is the program current replaced, restored by Reject.
	previous ValidatedSource
	state    State
	lastErr  error
}

var _ Validator = &validator{}

// NewValidator creates a Validator in StateUnvalidated.
// The fallback program is validated immediately; a failure there is a programming error and panics.
//
// Parameters:
//   - prelude: the binding declarations to prepend (nil means no prelude)
//   - options: functional options to configure the validator
//
// Returns:
//   - Validator: the new validator
func NewValidator(prelude PreludeProvider, options ...ValidatorBuilderOption) Validator {
	v := &validator{
		mu:       &sync.Mutex{},
		prelude:  prelude,
		readFile: os.ReadFile,
		state:    StateUnvalidated,
	}
	for _, opt := range options {
		opt(v)
	}

	fallback, err := v.compile(fallbackPath, fallbackFragmentStage)
	if err != nil {
		panic(fmt.Sprintf("fallback shader failed validation: %v", err))
	}
	v.fallback = fallback
	v.current = fallback
	v.previous = fallback
	return v
}

func (v *validator) ValidateFile(path string) (ValidatedSource, error) {
	data, err := v.readFile(path)
	if err != nil {
		return ValidatedSource{}, v.fail(&IOError{Path: path, Err: err})
	}
	return v.ValidateSource(path, string(data))
}

func (v *validator) ValidateSource(path, text string) (ValidatedSource, error) {
	src, err := v.compile(path, text)
	if err != nil {
		return ValidatedSource{}, v.fail(err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current != src {
		v.previous = v.current
	}
	v.current = src
	v.state = StateValid
	v.lastErr = nil
	return src, nil
}

func (v *validator) Fallback() ValidatedSource {
	return v.fallback
}

func (v *validator) Current() ValidatedSource {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

func (v *validator) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *validator) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

func (v *validator) Reject(src ValidatedSource, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == src {
		v.current = v.previous
	}
	v.state = StateInvalid
	v.lastErr = err
}

// fail records err and moves to StateInvalid, keeping the current program.
func (v *validator) fail(err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateInvalid
	v.lastErr = err
	return err
}

// compile runs the full pipeline: reserved group check, parse, lower, validate,
// entry point check and vertex synthesis.
func (v *validator) compile(path, text string) (ValidatedSource, error) {
	prelude := ""
	if v.prelude != nil {
		prelude = v.prelude.Prelude()
	}

	if err := v.checkReservedGroup(path, text); err != nil {
		return ValidatedSource{}, err
	}

	u := unit{path: path, prelude: prelude, user: text, code: prelude + text}
	module, err := u.check()
	if err != nil {
		return ValidatedSource{}, err
	}

	if !hasEntryPoint(module, FragmentEntryPoint, ir.StageFragment) {
		return ValidatedSource{}, &MissingEntryPointError{Path: path, EntryPoint: FragmentEntryPoint, Stage: "fragment"}
	}

	synthesized := false
	if !hasEntryPoint(module, VertexEntryPoint, ir.StageVertex) {
		u.code += fullScreenVertexStage
		if _, err := u.check(); err != nil {
			return ValidatedSource{}, err
		}
		synthesized = true
	}

	return ValidatedSource{path: path, code: u.code, synthesizedVertex: synthesized}, nil
}

// checkReservedGroup rejects user declarations in the prelude's bind group.
func (v *validator) checkReservedGroup(path, text string) error {
	for _, decl := range ScanBindings(text) {
		if decl.Group != PreludeGroup {
			continue
		}
		return &ValidationError{
			Path:    path,
			Line:    decl.Line,
			Column:  1,
			Message: fmt.Sprintf("`%s` is declared in @group(%d), which is reserved for built-in bindings", decl.Name, PreludeGroup),
			Context: sourceExcerpt(text, decl.Line, 1),
		}
	}
	return nil
}

func hasEntryPoint(module *ir.Module, name string, stage ir.ShaderStage) bool {
	for _, ep := range module.EntryPoints {
		if ep.Name == name && ep.Stage == stage {
			return true
		}
	}
	return false
}

// unit is one program being checked: prelude plus user text, plus anything appended.
type unit struct {
	path    string
	prelude string
	user    string
	code    string
}

// userLine maps a line in the combined program to a line in the user's file, or 0 if it falls in the prelude.
func (u unit) userLine(line int) int {
	l := line - strings.Count(u.prelude, "\n")
	if l < 1 {
		return 0
	}
	return l
}

// check parses, lowers and validates u.code.
func (u unit) check() (*ir.Module, error) {
	ast, err := naga.Parse(u.code)
	if err != nil {
		pe := &ParseError{Path: u.path, Message: err.Error(), Err: err}
		var perr wgsl.ParseError
		if errors.As(err, &perr) {
			pe.Message = perr.Message
			pe.Line = u.userLine(perr.Token.Line)
			pe.Column = perr.Token.Column
			pe.Context = sourceExcerpt(u.user, pe.Line, pe.Column)
		}
		return nil, pe
	}

	module, err := naga.LowerWithSource(ast, u.code)
	if err != nil {
		ve := &ValidationError{Path: u.path, Message: err.Error(), Err: err}
		var srcErrs *wgsl.SourceErrors
		if errors.As(err, &srcErrs) && srcErrs != nil && len(*srcErrs) > 0 {
			first := (*srcErrs)[0]
			ve.Message = first.Message
			if extra := len(*srcErrs) - 1; extra > 0 {
				ve.Message = fmt.Sprintf("%s (and %d more errors)", first.Message, extra)
			}
			ve.Line = u.userLine(first.Span.Start.Line)
			ve.Column = first.Span.Start.Column
			ve.Context = sourceExcerpt(u.user, ve.Line, ve.Column)
		}
		return nil, ve
	}

	issues, err := naga.Validate(module)
	if err != nil {
		return nil, &ValidationError{Path: u.path, Message: err.Error(), Err: err}
	}
	if len(issues) > 0 {
		msg := issues[0].Error()
		if len(issues) > 1 {
			msg = fmt.Sprintf("%s (and %d more errors)", msg, len(issues)-1)
		}
		return nil, &ValidationError{Path: u.path, Message: msg, Err: issues[0]}
	}

	return module, nil
}
