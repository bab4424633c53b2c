// Package engine evaluates Lisp documents in a zygomys sandbox and turns the
// shapes they build into an ast.Module.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/tliron/commonlog"

	"github.com/chazu/lathe/pkg/ast"
)

var log = commonlog.GetLogger("lathe.engine")

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ParseError converts e into a positioned parse error for src.
func (e EvalError) ParseError(src, path string) *ast.ParseError {
	pe := &ast.ParseError{Path: path, Message: e.Message}
	if e.Line > 0 {
		col := e.Col
		if col < 1 {
			col = 1
		}
		pe.Pos = ast.Offset(src, e.Line, col)
		pe.Line, pe.Col = ast.LineCol(src, pe.Pos)
	}
	return pe
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call creates a fresh sandboxed environment for determinism.
type Engine struct {
	generation atomic.Uint64
	timeout    time.Duration
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{timeout: EvalTimeout}
}

// Parse implements the session parser capability. Syntax and runtime
// errors in the document are returned as *ast.ParseError; a timeout or
// panic is returned as a plain error.
func (e *Engine) Parse(text, path string) (*ast.Module, error) {
	m, evalErrs, err := e.Evaluate(text)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		return nil, evalErrs[0].ParseError(text, path)
	}
	m.Path = path
	return m, nil
}

// Evaluate runs source and returns the module built from the shapes it
// creates.
//
// Return semantics:
//   - On success: returns module + nil errors + nil error
//   - On parse/eval failure: returns nil module + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*ast.Module, []EvalError, error) {
	gen := e.generation.Add(1)

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		m, evalErrs, err := e.evaluate(source)
		ch <- evalResult{module: m, errors: evalErrs, err: err}
	}()

	return e.await(ch, gen)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*ast.Module, []EvalError, error) {
	// Empty source is a valid program that produces an empty module.
	if strings.TrimSpace(source) == "" {
		return &ast.Module{}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	c := &collector{}
	registerBuiltins(env, c)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	m := &ast.Module{}
	m.Scope.Instantiations = c.topLevel()
	log.Debugf("evaluated %d top-level shapes", len(m.Scope.Instantiations))
	return m, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
