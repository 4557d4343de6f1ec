package shader

import (
	"fmt"
	"strings"
)

// IOError reports that the shader file could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: read shader source: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports a WGSL syntax error.
// Line and Column are relative to the user's file; zero means unknown.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	// Context holds a source excerpt with a caret when one is available.
	Context string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: parse error: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: parse error: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a semantic error: unresolved names, type mismatches,
// invalid bindings or any other failure after a successful parse.
type ValidationError struct {
	Path    string
	Line    int
	Column  int
	Message string
	// Context holds a source excerpt with a caret when one is available.
	Context string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: validation error: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: validation error: %s", e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// MissingEntryPointError reports that a required entry point is absent.
type MissingEntryPointError struct {
	Path       string
	EntryPoint string
	Stage      string
}

func (e *MissingEntryPointError) Error() string {
	return fmt.Sprintf("%s: %s entry point `%s` not found in source", e.Path, e.Stage, e.EntryPoint)
}

// sourceExcerpt renders the given 1-based line of source with a caret under column.
// Returns "" when the line is out of range.
func sourceExcerpt(source string, line, column int) string {
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	text := lines[line-1]
	column = max(1, min(column, len(text)+1))

	var sb strings.Builder
	fmt.Fprintf(&sb, "%4d | %s\n", line, text)
	fmt.Fprintf(&sb, "     | %s^", strings.Repeat(" ", column-1))
	return sb.String()
}
