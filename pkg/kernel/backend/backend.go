// Package backend selects the geometry kernel named in the worker settings.
package backend

import (
	"fmt"
	"strings"

	"github.com/chazu/lathe/pkg/config"
	"github.com/chazu/lathe/pkg/kernel"
	"github.com/chazu/lathe/pkg/kernel/manifold"
	"github.com/chazu/lathe/pkg/kernel/sdfx"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lathe.kernel")

// Open returns the kernel for w.Kernel. An empty name means sdfx.
func Open(w config.Worker) (kernel.Kernel, error) {
	name := strings.ToLower(strings.TrimSpace(w.Kernel))
	switch name {
	case "", config.DefaultKernel:
		k := sdfx.New().WithMeshCells(w.MeshCells)
		log.Debugf("using sdfx kernel with %d mesh cells", k.MeshCells())
		return k, nil
	case "manifold":
		k, err := manifold.New()
		if err != nil {
			return nil, err
		}
		log.Debug("using manifold kernel")
		return k, nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", w.Kernel)
	}
}
