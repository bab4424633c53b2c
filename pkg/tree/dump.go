package tree

import (
	"strings"

	"github.com/chazu/lathe/pkg/graph"
)

// dumper serializes a tree into one buffer and records the span of every
// node. A leaf is "header;". A node with children is "header {", then each
// child on its own line indented one tab deeper, then "}" at the node's
// own indentation. Spans start at the header, so nested lines keep their
// absolute indentation.
type dumper struct {
	buf   strings.Builder
	cache map[*graph.Node]string
	start []int // header offsets of the open nodes
}

func (d *dumper) Enter(n *graph.Node, depth int) bool {
	if depth > 0 {
		d.buf.WriteString(strings.Repeat("\t", depth))
	}
	d.start = append(d.start, d.buf.Len())
	d.buf.WriteString(n.String())
	if n.IsLeaf() {
		d.buf.WriteByte(';')
	} else {
		d.buf.WriteString(" {\n")
	}
	return true
}

func (d *dumper) Leave(n *graph.Node, depth int) {
	if !n.IsLeaf() {
		d.buf.WriteString(strings.Repeat("\t", depth))
		d.buf.WriteByte('}')
	}
	top := len(d.start) - 1
	start := d.start[top]
	d.start = d.start[:top]
	d.cache[n] = d.buf.String()[start:]

	if depth > 0 {
		d.buf.WriteByte('\n')
	}
}
