package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/chipflow/internal/compiler"
	"github.com/roach88/chipflow/internal/ir"
	"github.com/roach88/chipflow/internal/parse"
)

// Error codes for CLI responses. Run failures use the engine's StateError codes instead.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E002" // File or run not found
	ErrCodeParse    = "E003" // Text instruction syntax error
	ErrCodeCompile  = "E004" // CUE network error
	ErrCodeFlag     = "E005" // Invalid flag value
	ErrCodeDatabase = "E006" // Run log error
)

// LoadError describes why a network file could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Line    int // 0 if unknown
	Err     error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Code, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ExitCode returns ExitCommandError for a missing file and ExitFailure for a
// malformed one.
func (e *LoadError) ExitCode() int {
	if e.Code == ErrCodeNotFound {
		return ExitCommandError
	}
	return ExitFailure
}

// LoadNetwork loads a .txt or .cue network file, classifying failures as LoadErrors.
func LoadNetwork(path string) (*ir.Network, error) {
	net, err := compiler.LoadNetwork(path)
	if err == nil {
		return net, nil
	}

	var (
		parseErr   *parse.ParseError
		compileErr *compiler.CompileError
	)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("network file not found: %s", path), Err: err}
	case errors.As(err, &parseErr):
		return nil, &LoadError{Code: ErrCodeParse, Message: err.Error(), Line: parseErr.Line, Err: err}
	case errors.As(err, &compileErr):
		line := 0
		if compileErr.Pos.IsValid() {
			line = compileErr.Pos.Line()
		}
		return nil, &LoadError{Code: ErrCodeCompile, Message: err.Error(), Line: line, Err: err}
	default:
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
	}
}

// reportLoadError writes a load failure and returns the matching ExitError.
func reportLoadError(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load network", err)
	}

	var details any
	if loadErr.Line > 0 {
		details = map[string]int{"line": loadErr.Line}
	}
	_ = f.Error(loadErr.Code, loadErr.Message, details)
	return WrapExitError(loadErr.ExitCode(), "failed to load network", err)
}

// parseUintList parses a comma-separated list such as "0,1,2".
func parseUintList(s string) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q in %q", strings.TrimSpace(p), s)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseWatchFlag parses --watch "a,b" into a watched pair.
func parseWatchFlag(s string) (*ir.WatchPair, error) {
	vals, err := parseUintList(s)
	if err != nil {
		return nil, err
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("watch needs exactly 2 chip values, got %q", s)
	}
	w := ir.NewWatchPair(ir.Value(vals[0]), ir.Value(vals[1]))
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}
