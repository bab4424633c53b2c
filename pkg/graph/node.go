package graph

import "strings"

// Kind enumerates the types of nodes in the tree.
type Kind int

const (
	KindPrimitive Kind = iota // leaf geometry (cube, sphere, cylinder)
	KindTransform             // affine transform applied to the children
	KindBoolean               // union, difference, intersection
	KindGroup                 // implicit union (group, user module)
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindTransform:
		return "transform"
	case KindBoolean:
		return "boolean"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Tag is a bit set of the modifiers applied to a node in the source.
type Tag uint8

const (
	TagRoot       Tag = 1 << iota // ! modifier
	TagHighlight                  // # modifier
	TagBackground                 // % modifier
)

// Has reports whether every bit of o is set in t.
func (t Tag) Has(o Tag) bool {
	return t&o == o
}

// prefix renders the modifier characters in source order.
func (t Tag) prefix() string {
	var b strings.Builder
	if t.Has(TagRoot) {
		b.WriteByte('!')
	}
	if t.Has(TagHighlight) {
		b.WriteByte('#')
	}
	if t.Has(TagBackground) {
		b.WriteByte('%')
	}
	return b.String()
}

// Node is the fundamental element of the tree. Children are owned
// exclusively by their parent.
type Node struct {
	ID       int      `json:"id"`
	Kind     Kind     `json:"kind"`
	Tags     Tag      `json:"tags,omitempty"`
	Data     NodeData `json:"data"`
	Children []*Node  `json:"children,omitempty"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
	header() string
}

// String returns the canonical one-line header of the node, without its
// children. The tree cache builds full subtree strings out of headers.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	h := "group()"
	if n.Data != nil {
		h = n.Data.header()
	}
	return n.Tags.prefix() + h
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}
