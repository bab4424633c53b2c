package pipeline

import (
	"errors"
	"fmt"
)

// Failure reasons of a compilation cycle. Use errors.Is against a
// *CompileError to tell them apart.
var (
	ErrParseFailure     = errors.New("parse failure")
	ErrNoTopLevelObject = errors.New("no top level object found")
	ErrInvalidTree      = errors.New("invalid node tree")
	ErrGeneration       = errors.New("term generation failed")
)

// CompileError is a failed cycle. Pos is the byte offset of a parse error
// within the file named by Path, or -1 when the failure has no source
// position. Path differs from the document's path when the error is in an
// included file.
type CompileError struct {
	Reason error
	Path   string
	Pos    int
	Err    error
}

// NewParseError wraps a parser error found at byte offset pos of path.
func NewParseError(path string, pos int, err error) *CompileError {
	return &CompileError{Reason: ErrParseFailure, Path: path, Pos: pos, Err: err}
}

// NoTopLevelObject reports a document that produced nothing to render.
func NoTopLevelObject() *CompileError {
	return &CompileError{Reason: ErrNoTopLevelObject, Pos: -1}
}

func (e *CompileError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("Compilation failed! (%v)", e.Reason)
	case errors.Is(e.Reason, ErrParseFailure):
		return fmt.Sprintf("Compilation failed! (%v)", e.Err)
	default:
		return fmt.Sprintf("Compilation failed! (%v: %v)", e.Reason, e.Err)
	}
}

func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// WarningKind classifies a non-fatal pipeline condition.
type WarningKind int

const (
	WarnNormalizationOverflow WarningKind = iota
	WarnRenderSizeExceeded
	WarnEmptyMain
)

func (k WarningKind) String() string {
	switch k {
	case WarnNormalizationOverflow:
		return "normalization-overflow"
	case WarnRenderSizeExceeded:
		return "render-size-exceeded"
	case WarnEmptyMain:
		return "empty-main"
	default:
		return "unknown"
	}
}

// Warning is one console line worth of pipeline diagnostics.
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return w.Message
}
