package csg_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/chazu/lathe/pkg/csg"
)

// box is a fixed bounding box standing in for kernel geometry.
type box struct {
	min, max [3]float64
}

func (b box) BoundingBox() (min, max [3]float64) { return b.min, b.max }

func leaf(label string) *csg.Term {
	return csg.NewLeaf(box{}, nil, label, 0, 0)
}

func TestNewOpEmptyOperands(t *testing.T) {
	a := leaf("a")
	tests := []struct {
		name        string
		op          csg.OpType
		left, right *csg.Term
		want        string
	}{
		{"union empty left", csg.OpUnion, nil, a, "a"},
		{"union empty right", csg.OpUnion, a, nil, "a"},
		{"union both empty", csg.OpUnion, nil, nil, "<empty>"},
		{"intersection empty left", csg.OpIntersection, nil, a, "<empty>"},
		{"intersection empty right", csg.OpIntersection, a, nil, "<empty>"},
		{"difference empty left", csg.OpDifference, nil, a, "<empty>"},
		{"difference empty right", csg.OpDifference, a, nil, "a"},
		{"difference", csg.OpDifference, a, leaf("b"), "(a - b)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := csg.NewOp(tt.op, tt.left, tt.right).String(); got != tt.want {
				t.Errorf("NewOp() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLeafCountAndLeaves(t *testing.T) {
	a := leaf("a")
	term := csg.NewOp(csg.OpUnion, csg.NewOp(csg.OpDifference, a, leaf("b")), csg.NewOp(csg.OpIntersection, a, leaf("c")))
	if got := term.LeafCount(); got != 4 {
		t.Errorf("LeafCount() = %d, want 4", got)
	}
	var labels []string
	for _, l := range term.Leaves() {
		labels = append(labels, l.Label)
	}
	if got := fmt.Sprint(labels); got != "[a b a c]" {
		t.Errorf("Leaves() = %s, want [a b a c]", got)
	}
	if (*csg.Term)(nil).LeafCount() != 0 {
		t.Error("nil term should have no leaves")
	}
}

func TestNormalizeRules(t *testing.T) {
	a, b, c := leaf("a"), leaf("b"), leaf("c")
	u := func(l, r *csg.Term) *csg.Term { return csg.NewOp(csg.OpUnion, l, r) }
	i := func(l, r *csg.Term) *csg.Term { return csg.NewOp(csg.OpIntersection, l, r) }
	d := func(l, r *csg.Term) *csg.Term { return csg.NewOp(csg.OpDifference, l, r) }

	tests := []struct {
		name string
		in   *csg.Term
		want string
	}{
		{"difference of union", d(a, u(b, c)), "((a - b) - c)"},
		{"intersection of union", i(a, u(b, c)), "((a * b) + (a * c))"},
		{"difference of intersection", d(a, i(b, c)), "((a - b) + (a - c))"},
		{"intersection of intersection", i(a, i(b, c)), "((a * b) * c)"},
		{"difference of difference", d(a, d(b, c)), "((a - b) + (a * c))"},
		{"intersection of difference", i(a, d(b, c)), "((a * b) - c)"},
		{"difference then intersection", i(d(a, b), c), "((a * c) - b)"},
		{"union then difference", d(u(a, b), c), "((a - c) + (b - c))"},
		{"union then intersection", i(u(a, b), c), "((a * c) + (b * c))"},
		{"already normal", u(d(a, b), c), "((a - b) + c)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := csg.Normalize(tt.in, 100)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("Normalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNormalizeKeepsNormalTerm(t *testing.T) {
	term := csg.NewOp(csg.OpUnion, csg.NewOp(csg.OpDifference, leaf("a"), leaf("b")), leaf("c"))
	got, err := csg.Normalize(term, 3)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got != term {
		t.Error("Normalize() rebuilt a term that was already in normal form")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	got, err := csg.Normalize(nil, 10)
	if err != nil || got != nil {
		t.Errorf("Normalize(nil) = %v, %v, want nil, nil", got, err)
	}
}

func TestNormalizeLimit(t *testing.T) {
	term := csg.NewOp(csg.OpIntersection, leaf("a"), csg.NewOp(csg.OpUnion, leaf("b"), leaf("c")))

	// (a * b) + (a * c) has four leaves.
	if _, err := csg.Normalize(term, 3); err != csg.ErrNormalizationOverflow {
		t.Errorf("limit 3: error = %v, want ErrNormalizationOverflow", err)
	}
	got, err := csg.Normalize(term, 4)
	if err != nil {
		t.Fatalf("limit 4: error = %v", err)
	}
	if got.LeafCount() != 4 {
		t.Errorf("limit 4: LeafCount() = %d, want 4", got.LeafCount())
	}
}

func TestNormalizeLimitPlusOne(t *testing.T) {
	const limit = 8
	var term *csg.Term
	for i := 0; i <= limit; i++ {
		term = csg.NewOp(csg.OpUnion, term, leaf(fmt.Sprintf("cube%d", i)))
	}
	got, err := csg.Normalize(term, limit)
	if err != csg.ErrNormalizationOverflow {
		t.Fatalf("error = %v, want ErrNormalizationOverflow", err)
	}
	if got != nil {
		t.Errorf("Normalize() = %s, want no term", got)
	}
}

// randomTerm builds a term of the given depth from a small set of leaves.
func randomTerm(r *rand.Rand, depth int, leaves []*csg.Term) *csg.Term {
	if depth == 0 || r.Intn(4) == 0 {
		return leaves[r.Intn(len(leaves))]
	}
	ops := []csg.OpType{csg.OpUnion, csg.OpIntersection, csg.OpDifference}
	return csg.NewOp(ops[r.Intn(len(ops))], randomTerm(r, depth-1, leaves), randomTerm(r, depth-1, leaves))
}

func isSum(t *csg.Term) bool {
	if t.Op == csg.OpUnion {
		return isSum(t.Left) && isSum(t.Right)
	}
	return isProduct(t)
}

func isProduct(t *csg.Term) bool {
	if t.IsLeaf() {
		return true
	}
	if t.Op == csg.OpUnion {
		return false
	}
	return t.Right.IsLeaf() && isProduct(t.Left)
}

func TestNormalizeBoundAndForm(t *testing.T) {
	leaves := []*csg.Term{leaf("a"), leaf("b"), leaf("c"), leaf("d")}
	for _, limit := range []int{4, 16, 64} {
		for seed := int64(0); seed < 200; seed++ {
			r := rand.New(rand.NewSource(seed))
			term := randomTerm(r, 5, leaves)
			got, err := csg.Normalize(term, limit)
			if err != nil {
				if err != csg.ErrNormalizationOverflow || got != nil {
					t.Fatalf("seed %d limit %d: Normalize() = %v, %v", seed, limit, got, err)
				}
				continue
			}
			if got.LeafCount() > limit {
				t.Errorf("seed %d limit %d: %d leaves exceed the limit", seed, limit, got.LeafCount())
			}
			if !isSum(got) {
				t.Errorf("seed %d limit %d: %s is not a sum of products", seed, limit, got)
			}
		}
	}
}
