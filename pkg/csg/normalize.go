package csg

import "errors"

// ErrNormalizationOverflow is returned when a normalized term would hold
// more leaves than the configured limit.
var ErrNormalizationOverflow = errors.New("csg: normalized tree exceeds leaf limit")

// Normalize rewrites t into sum-of-products form: a union of products,
// each product a leaf followed by intersections and subtractions of
// leaves. The result holds at most limit leaves; if that bound cannot be
// met the term is discarded and ErrNormalizationOverflow returned. A nil
// term normalizes to nil.
func Normalize(t *Term, limit int) (*Term, error) {
	if t == nil {
		return nil, nil
	}
	if t.LeafCount() > limit {
		return nil, ErrNormalizationOverflow
	}
	n := &normalizer{limit: limit, leaves: t.LeafCount()}
	for {
		next := n.pass(t)
		if n.aborted {
			return nil, ErrNormalizationOverflow
		}
		if next == t {
			return t, nil
		}
		t = next
	}
}

// normalizer applies the Goldfeather rewrite rules. Rules never remove
// leaves, so leaves tracks the size of the whole tree as rules duplicate
// operands, and the rewrite aborts as soon as it passes the limit.
type normalizer struct {
	limit   int
	leaves  int
	aborted bool
}

func (n *normalizer) pass(t *Term) *Term {
	if n.aborted || t.IsLeaf() {
		return t
	}
	for {
		for {
			r, added, ok := rewrite(t)
			if !ok {
				break
			}
			t = r
			n.leaves += added
			if n.leaves > n.limit {
				n.aborted = true
				return t
			}
		}
		t = withLeft(t, n.pass(t.Left))
		if n.aborted {
			return t
		}
		if t.Op == OpUnion || (t.Right.IsLeaf() && t.Left.Op != OpUnion) {
			break
		}
	}
	return withRight(t, n.pass(t.Right))
}

func withLeft(t, left *Term) *Term {
	if left == t.Left {
		return t
	}
	return &Term{Op: t.Op, Left: left, Right: t.Right}
}

func withRight(t, right *Term) *Term {
	if right == t.Right {
		return t
	}
	return &Term{Op: t.Op, Left: t.Left, Right: right}
}

func op(o OpType, l, r *Term) *Term {
	return &Term{Op: o, Left: l, Right: r}
}

// rewrite applies the first matching rule at the top of t and reports how
// many leaf references the rule duplicated.
func rewrite(t *Term) (*Term, int, bool) {
	if t.IsLeaf() {
		return t, 0, false
	}
	x, r := t.Left, t.Right

	if !r.IsLeaf() {
		y, z := r.Left, r.Right
		switch {
		// x - (y + z) -> (x - y) - z
		case t.Op == OpDifference && r.Op == OpUnion:
			return op(OpDifference, op(OpDifference, x, y), z), 0, true
		// x * (y + z) -> (x * y) + (x * z)
		case t.Op == OpIntersection && r.Op == OpUnion:
			return op(OpUnion, op(OpIntersection, x, y), op(OpIntersection, x, z)), x.LeafCount(), true
		// x - (y * z) -> (x - y) + (x - z)
		case t.Op == OpDifference && r.Op == OpIntersection:
			return op(OpUnion, op(OpDifference, x, y), op(OpDifference, x, z)), x.LeafCount(), true
		// x * (y * z) -> (x * y) * z
		case t.Op == OpIntersection && r.Op == OpIntersection:
			return op(OpIntersection, op(OpIntersection, x, y), z), 0, true
		// x - (y - z) -> (x - y) + (x * z)
		case t.Op == OpDifference && r.Op == OpDifference:
			return op(OpUnion, op(OpDifference, x, y), op(OpIntersection, x, z)), x.LeafCount(), true
		// x * (y - z) -> (x * y) - z
		case t.Op == OpIntersection && r.Op == OpDifference:
			return op(OpDifference, op(OpIntersection, x, y), z), 0, true
		}
	}

	if !x.IsLeaf() {
		a, b := x.Left, x.Right
		switch {
		// (a - b) * r -> (a * r) - b
		case x.Op == OpDifference && t.Op == OpIntersection:
			return op(OpDifference, op(OpIntersection, a, r), b), 0, true
		// (a + b) - r -> (a - r) + (b - r)
		case x.Op == OpUnion && t.Op == OpDifference:
			return op(OpUnion, op(OpDifference, a, r), op(OpDifference, b, r)), r.LeafCount(), true
		// (a + b) * r -> (a * r) + (b * r)
		case x.Op == OpUnion && t.Op == OpIntersection:
			return op(OpUnion, op(OpIntersection, a, r), op(OpIntersection, b, r)), r.LeafCount(), true
		}
	}
	return t, 0, false
}
