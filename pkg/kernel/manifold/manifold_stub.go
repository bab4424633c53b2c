//go:build !manifold

// Package manifold binds the Manifold C library as a geometry kernel.
// Without the "manifold" build tag only this stub is compiled.
package manifold

import (
	"errors"

	"github.com/chazu/lathe/pkg/kernel"
)

// ErrUnavailable is returned by New in builds without the manifold tag.
var ErrUnavailable = errors.New("manifold kernel unavailable in this build (rebuild with -tags=manifold)")

func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
