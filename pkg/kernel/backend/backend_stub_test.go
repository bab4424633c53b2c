//go:build !manifold

package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chazu/lathe/pkg/config"
)

func TestOpenManifoldUnavailable(t *testing.T) {
	k, err := Open(config.Worker{Kernel: "manifold"})
	assert.Nil(t, k)
	assert.ErrorContains(t, err, "-tags=manifold")
}
