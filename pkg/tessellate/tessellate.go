// Package tessellate walks a node tree and produces exact geometry using a
// geometry kernel. It also supplies the leaf evaluator used by term
// generation.
package tessellate

import (
	"fmt"

	"github.com/chazu/lathe/pkg/csg"
	"github.com/chazu/lathe/pkg/graph"
	"github.com/chazu/lathe/pkg/kernel"
)

// Solid folds the tree rooted at root into one solid. Background subtrees
// do not contribute. A nil solid with a nil error means the tree has no
// geometry. The tree is never mutated.
func Solid(root *graph.Node, k kernel.Kernel) (kernel.Solid, error) {
	if root == nil {
		return nil, nil
	}
	return walkNode(k, root)
}

// Tessellate builds the solid for root and converts it to a triangle mesh.
// Empty geometry yields an empty mesh.
func Tessellate(root *graph.Node, k kernel.Kernel) (*kernel.Mesh, error) {
	s, err := Solid(root, k)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return &kernel.Mesh{}, nil
	}
	mesh, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for node %d: %w", root.ID, err)
	}
	mesh.Label = root.String()
	return mesh, nil
}

// walkNode recursively folds a node and its children into a solid.
func walkNode(k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	if n.Tags.Has(graph.TagBackground) {
		return nil, nil
	}

	switch n.Kind {
	case graph.KindPrimitive:
		return handlePrimitive(k, n)

	case graph.KindTransform:
		return handleTransform(k, n)

	case graph.KindBoolean:
		return handleBoolean(k, n)

	case graph.KindGroup:
		return unionChildren(k, n)

	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

// handlePrimitive creates geometry for a primitive node.
func handlePrimitive(k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	data, ok := n.Data.(graph.PrimitiveData)
	if !ok {
		return nil, fmt.Errorf("primitive node %d has unsupported data type %T", n.ID, n.Data)
	}
	s, err := kernel.Primitive(k, data)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", n.ID, err)
	}
	return s, nil
}

// handleTransform unions the children and applies the node's operation.
func handleTransform(k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %d has unexpected data type %T", n.ID, n.Data)
	}
	s, err := unionChildren(k, n)
	if err != nil || s == nil {
		return nil, err
	}
	return kernel.Apply(k, s, td), nil
}

// handleBoolean folds the children with the node's operation. Children
// without geometry are skipped, so the first non-empty child is the base
// of a difference.
func handleBoolean(k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	bd, ok := n.Data.(graph.BooleanData)
	if !ok {
		return nil, fmt.Errorf("boolean node %d has unexpected data type %T", n.ID, n.Data)
	}

	var acc kernel.Solid
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		s, err := walkNode(k, child)
		if err != nil {
			return nil, err
		}
		switch {
		case s == nil:
		case acc == nil:
			acc = s
		case bd.Op == graph.OpDifference:
			acc = k.Difference(acc, s)
		case bd.Op == graph.OpIntersection:
			acc = k.Intersection(acc, s)
		default:
			acc = k.Union(acc, s)
		}
	}
	return acc, nil
}

// unionChildren recurses into children and unions every non-empty result.
func unionChildren(k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	var acc kernel.Solid
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		s, err := walkNode(k, child)
		if err != nil {
			return nil, err
		}
		switch {
		case s == nil:
		case acc == nil:
			acc = s
		default:
			acc = k.Union(acc, s)
		}
	}
	return acc, nil
}

// Evaluator builds untransformed leaf geometry through a kernel. Term
// generation carries placements separately, so only the primitive is
// constructed here.
type Evaluator struct {
	Kernel kernel.Kernel
}

var _ csg.Evaluator = Evaluator{}

// Leaf returns the kernel solid of a primitive node.
func (e Evaluator) Leaf(n *graph.Node) (csg.Geometry, error) {
	s, err := handlePrimitive(e.Kernel, n)
	if err != nil {
		return nil, err
	}
	return s, nil
}
