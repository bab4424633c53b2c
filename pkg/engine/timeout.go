package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/lathe/pkg/ast"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	// The interpreter goroutine is abandoned, not stopped.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrSuperseded is returned to a caller whose evaluation finished
	// after a newer one had started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	module *ast.Module
	errors []EvalError
	err    error
}

// await blocks for the result of evaluation gen.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*ast.Module, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if gen != e.generation.Load() {
			log.Debugf("dropping result of evaluation %d", gen)
			return nil, nil, ErrSuperseded
		}
		return res.module, res.errors, res.err
	case <-timer.C:
		log.Warningf("evaluation %d timed out after %s", gen, e.timeout)
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
}
