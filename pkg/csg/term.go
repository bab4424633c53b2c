// Package csg builds boolean term trees from a node tree, normalizes them
// into sum-of-products form and flattens them into chains a renderer can
// draw. Terms are immutable; normalization builds new trees that share
// leaves with the input.
package csg

import (
	"strings"

	"github.com/chazu/lathe/pkg/graph"
)

// Geometry is the leaf payload of a term. Kernel solids satisfy it.
type Geometry interface {
	BoundingBox() (min, max [3]float64)
}

// OpType is the operation of a term node.
type OpType int

const (
	OpLeaf OpType = iota
	OpUnion
	OpIntersection
	OpDifference
)

func (o OpType) String() string {
	switch o {
	case OpLeaf:
		return "leaf"
	case OpUnion:
		return "union"
	case OpIntersection:
		return "intersection"
	case OpDifference:
		return "difference"
	default:
		return "unknown"
	}
}

// symbol is the infix operator used in dumps.
func (o OpType) symbol() string {
	switch o {
	case OpUnion:
		return "+"
	case OpIntersection:
		return "*"
	case OpDifference:
		return "-"
	default:
		return "?"
	}
}

// Flag marks leaves that came from tagged subtrees.
type Flag uint8

const (
	FlagHighlight Flag = 1 << iota
	FlagBackground
)

// Term is a node of a boolean expression over leaf geometry.
type Term struct {
	Op    OpType
	Left  *Term
	Right *Term

	// Leaf fields.
	Geometry  Geometry
	Placement graph.Placement
	Label     string
	NodeID    int
	Flags     Flag
}

// NewLeaf returns a leaf term.
func NewLeaf(g Geometry, p graph.Placement, label string, nodeID int, flags Flag) *Term {
	return &Term{Op: OpLeaf, Geometry: g, Placement: p, Label: label, NodeID: nodeID, Flags: flags}
}

// NewOp combines two terms. Empty (nil) operands collapse: they vanish
// from unions and from the right of a difference, empty a difference
// when on the left, and empty any intersection.
func NewOp(op OpType, left, right *Term) *Term {
	switch op {
	case OpUnion:
		if left == nil {
			return right
		}
		if right == nil {
			return left
		}
	case OpIntersection:
		if left == nil || right == nil {
			return nil
		}
	case OpDifference:
		if left == nil {
			return nil
		}
		if right == nil {
			return left
		}
	default:
		return nil
	}
	return &Term{Op: op, Left: left, Right: right}
}

// IsLeaf reports whether t is a leaf.
func (t *Term) IsLeaf() bool {
	return t != nil && t.Op == OpLeaf
}

// LeafCount returns the number of leaf references in t. Shared leaves are
// counted once per reference. A nil term has no leaves.
func (t *Term) LeafCount() int {
	if t == nil {
		return 0
	}
	if t.Op == OpLeaf {
		return 1
	}
	return t.Left.LeafCount() + t.Right.LeafCount()
}

// Leaves returns the leaves of t in depth-first order.
func (t *Term) Leaves() []*Term {
	var out []*Term
	var visit func(*Term)
	visit = func(t *Term) {
		if t == nil {
			return
		}
		if t.Op == OpLeaf {
			out = append(out, t)
			return
		}
		visit(t.Left)
		visit(t.Right)
	}
	visit(t)
	return out
}

// Matrix returns the cumulative transform of a leaf.
func (t *Term) Matrix() graph.Mat4 {
	return t.Placement.Matrix()
}

// String renders the term as a parenthesized infix expression of leaf
// labels, e.g. "(cube1 - (sphere2 * cylinder3))".
func (t *Term) String() string {
	if t == nil {
		return "<empty>"
	}
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *Term) write(b *strings.Builder) {
	if t.Op == OpLeaf {
		b.WriteString(t.Label)
		return
	}
	b.WriteByte('(')
	t.Left.write(b)
	b.WriteByte(' ')
	b.WriteString(t.Op.symbol())
	b.WriteByte(' ')
	t.Right.write(b)
	b.WriteByte(')')
}
