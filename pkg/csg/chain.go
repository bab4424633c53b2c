package csg

import (
	"strings"

	"github.com/chazu/lathe/pkg/graph"
)

// Entry is one flattened leaf of a chain. Op tells how the leaf combines
// with the entries before it: OpUnion starts a new product, OpIntersection
// and OpDifference refine the current one.
type Entry struct {
	Geometry  Geometry
	Transform graph.Mat4
	Op        OpType
	Label     string
	NodeID    int
	Flags     Flag
}

// Chain is the renderer-ready form of a normalized term. A nil *Chain
// means there is nothing to render.
type Chain struct {
	Entries []Entry
}

// Import flattens a normalized term into a chain with one depth-first
// pass. A nil term yields a nil chain.
func Import(t *Term) *Chain {
	if t == nil {
		return nil
	}
	c := &Chain{}
	c.add(t, OpUnion)
	return c
}

func (c *Chain) add(t *Term, op OpType) {
	if t.Op == OpLeaf {
		c.Entries = append(c.Entries, Entry{
			Geometry:  t.Geometry,
			Transform: t.Matrix(),
			Op:        op,
			Label:     t.Label,
			NodeID:    t.NodeID,
			Flags:     t.Flags,
		})
		return
	}
	c.add(t.Left, op)
	c.add(t.Right, t.Op)
}

// ImportAll joins several normalized terms into one chain. Nil terms are
// skipped; if every term is nil, or there are none, the chain is nil.
func ImportAll(terms []*Term) *Chain {
	var c *Chain
	for _, t := range terms {
		if t == nil {
			continue
		}
		if c == nil {
			c = &Chain{}
		}
		c.add(t, OpUnion)
	}
	return c
}

// Len returns the number of entries. A nil chain has none.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// Products splits the chain at each union entry.
func (c *Chain) Products() [][]Entry {
	if c == nil {
		return nil
	}
	var out [][]Entry
	for i, e := range c.Entries {
		if e.Op == OpUnion || i == 0 {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], e)
	}
	return out
}

// String renders one product per line, e.g. "+cube1 -sphere2".
func (c *Chain) String() string {
	if c == nil {
		return "<none>"
	}
	lines := make([]string, 0, len(c.Entries))
	for _, product := range c.Products() {
		var b strings.Builder
		for i, e := range product {
			switch {
			case i == 0:
				b.WriteByte('+')
			case e.Op == OpDifference:
				b.WriteString(" -")
			case e.Op == OpIntersection:
				b.WriteString(" *")
			}
			b.WriteString(e.Label)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
