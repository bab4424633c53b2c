package graph

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Cube returns a cube primitive node.
func Cube(size Vec3, center bool) *Node {
	return &Node{Kind: KindPrimitive, Data: PrimitiveData{Shape: ShapeCube, Size: size, Center: center}}
}

// Sphere returns a sphere primitive node.
func Sphere(r float64) *Node {
	return &Node{Kind: KindPrimitive, Data: PrimitiveData{Shape: ShapeSphere, Radius: r}}
}

// Cylinder returns a cylinder primitive node.
func Cylinder(h, r float64, center bool) *Node {
	return &Node{Kind: KindPrimitive, Data: PrimitiveData{Shape: ShapeCylinder, Height: h, Radius: r, Center: center}}
}

// Transform returns a transform node applying op to children.
func Transform(op TransformOp, v Vec3, children ...*Node) *Node {
	return &Node{Kind: KindTransform, Data: TransformData{Op: op, Vec: v}, Children: children}
}

// Boolean returns a CSG operation node over children.
func Boolean(op BooleanOp, children ...*Node) *Node {
	return &Node{Kind: KindBoolean, Data: BooleanData{Op: op}, Children: children}
}

// Group returns an implicit union node.
func Group(module string, children ...*Node) *Node {
	return &Node{Kind: KindGroup, Data: GroupData{Module: module}, Children: children}
}

// WithTags sets tags on n and returns it.
func (n *Node) WithTags(t Tag) *Node {
	n.Tags |= t
	return n
}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

// Visitor receives pre-order (Enter) and post-order (Leave) callbacks.
// Returning false from Enter skips the node's children; Leave is still
// called for it.
type Visitor interface {
	Enter(n *Node, depth int) bool
	Leave(n *Node, depth int)
}

// Walk traverses the tree rooted at root depth first.
func Walk(root *Node, v Visitor) {
	if root == nil {
		return
	}
	walk(root, 0, v)
}

func walk(n *Node, depth int, v Visitor) {
	if v.Enter(n, depth) {
		for _, c := range n.Children {
			if c != nil {
				walk(c, depth+1, v)
			}
		}
	}
	v.Leave(n, depth)
}

// Inspect calls fn for every node in pre-order. Returning false prunes the
// node's children.
func Inspect(root *Node, fn func(n *Node) bool) {
	Walk(root, inspector(fn))
}

type inspector func(n *Node) bool

func (f inspector) Enter(n *Node, _ int) bool { return f(n) }
func (f inspector) Leave(*Node, int)          {}

// Count returns the number of nodes in the tree.
func Count(root *Node) int {
	var count int
	Inspect(root, func(*Node) bool {
		count++
		return true
	})
	return count
}

// FindTagged returns the first node in pre-order carrying tag, or nil.
func FindTagged(root *Node, tag Tag) *Node {
	var found *Node
	Inspect(root, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Tags.Has(tag) {
			found = n
			return false
		}
		return true
	})
	return found
}

// Renumber assigns IDs in pre-order starting from zero and returns the
// number of nodes.
func Renumber(root *Node) int {
	next := 0
	Inspect(root, func(n *Node) bool {
		n.ID = next
		next++
		return true
	})
	return next
}

// Clone returns a deep copy of the tree. NodeData values are immutable
// structs, so they are shared by value.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := &Node{ID: n.ID, Kind: n.Kind, Tags: n.Tags, Data: n.Data}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = Clone(ch)
		}
	}
	return c
}
