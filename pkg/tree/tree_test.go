package tree

import (
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/lathe/pkg/graph"
)

// serialize is an independent recursive serializer used as the reference
// for cache coherence.
func serialize(n *graph.Node, depth int) string {
	if n.IsLeaf() {
		return n.String() + ";"
	}
	var b strings.Builder
	b.WriteString(n.String() + " {\n")
	for _, c := range n.Children {
		b.WriteString(strings.Repeat("\t", depth+1))
		b.WriteString(serialize(c, depth+1))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("\t", depth) + "}")
	return b.String()
}

// depths maps every node to its depth below root.
func depths(root *graph.Node) map[*graph.Node]int {
	out := make(map[*graph.Node]int)
	var rec func(n *graph.Node, d int)
	rec = func(n *graph.Node, d int) {
		out[n] = d
		for _, c := range n.Children {
			rec(c, d+1)
		}
	}
	rec(root, 0)
	return out
}

func treeA() *graph.Node {
	root := graph.Group("",
		graph.Boolean(graph.OpDifference,
			graph.Cube(graph.Vec3{X: 10, Y: 10, Z: 10}, true),
			graph.Transform(graph.OpTranslate, graph.Vec3{Z: 5},
				graph.Cylinder(20, 2, true)),
		),
		graph.Sphere(3).WithTags(graph.TagHighlight),
	)
	graph.Renumber(root)
	return root
}

func treeB() *graph.Node {
	root := graph.Boolean(graph.OpUnion,
		graph.Transform(graph.OpRotate, graph.Vec3{Z: 45},
			graph.Cube(graph.Vec3{X: 1, Y: 2, Z: 3}, false)),
	)
	graph.Renumber(root)
	return root
}

func TestStringFormat(t *testing.T) {
	tr := New(treeA())
	got, err := tr.String(tr.Root())
	if err != nil {
		t.Fatal(err)
	}
	want := "group() {\n" +
		"\tdifference() {\n" +
		"\t\tcube(size = [10, 10, 10], center = true);\n" +
		"\t\ttranslate([0, 0, 5]) {\n" +
		"\t\t\tcylinder(h = 20, r = 2, center = true);\n" +
		"\t\t}\n" +
		"\t}\n" +
		"\t#sphere(r = 3);\n" +
		"}"
	if got != want {
		t.Errorf("String(root) =\n%s\nwant\n%s", got, want)
	}
}

func TestCacheCoherence(t *testing.T) {
	tr := New(nil)
	for _, root := range []*graph.Node{treeA(), treeB(), treeA()} {
		tr.SetRoot(root)
		for n, d := range depths(root) {
			got, err := tr.String(n)
			if err != nil {
				t.Fatalf("String(node %d): %v", n.ID, err)
			}
			if want := serialize(n, d); got != want {
				t.Errorf("node %d: cached %q, want %q", n.ID, got, want)
			}
		}
	}
}

func TestSingleRebuildPerRoot(t *testing.T) {
	root := treeA()
	tr := New(root)
	for n := range depths(root) {
		if _, err := tr.String(n); err != nil {
			t.Fatal(err)
		}
	}
	if tr.Rebuilds() != 1 {
		t.Errorf("rebuilds = %d, want 1", tr.Rebuilds())
	}
}

func TestSetRootInvalidates(t *testing.T) {
	a, b := treeA(), treeB()
	tr := New(a)
	if _, err := tr.String(a); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.IDString(a.Children[0]); err != nil {
		t.Fatal(err)
	}

	tr.SetRoot(b)
	before := tr.Rebuilds()

	// A node exclusive to A cannot be served from the old entries: the lookup
	// misses, triggers a rebuild of B, and reports the node as unreachable.
	if _, err := tr.String(a); !errors.Is(err, ErrNodeNotInTree) {
		t.Errorf("String(old root) error = %v, want ErrNodeNotInTree", err)
	}
	if _, err := tr.IDString(a.Children[0]); !errors.Is(err, ErrNodeNotInTree) {
		t.Errorf("IDString(old node) error = %v, want ErrNodeNotInTree", err)
	}
	if tr.Rebuilds() <= before {
		t.Error("expected a rebuild after SetRoot")
	}
}

func TestNoRoot(t *testing.T) {
	tr := New(nil)
	if _, err := tr.String(graph.Sphere(1)); !errors.Is(err, ErrNoRoot) {
		t.Errorf("error = %v, want ErrNoRoot", err)
	}
	if _, err := tr.Key(graph.Sphere(1)); !errors.Is(err, ErrNoRoot) {
		t.Errorf("Key error = %v, want ErrNoRoot", err)
	}
}

func TestIDStringStripsWhitespace(t *testing.T) {
	root := treeA()
	tr := New(root)
	for n := range depths(root) {
		s, err := tr.String(n)
		if err != nil {
			t.Fatal(err)
		}
		id, err := tr.IDString(n)
		if err != nil {
			t.Fatal(err)
		}
		want := strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "").Replace(s)
		if id != want {
			t.Errorf("IDString = %q, want %q", id, want)
		}
	}
}

func TestIDStringDepthIndependent(t *testing.T) {
	shallow := graph.Transform(graph.OpTranslate, graph.Vec3{X: 1}, graph.Sphere(2))
	deep := graph.Transform(graph.OpTranslate, graph.Vec3{X: 1}, graph.Sphere(2))
	root := graph.Group("", shallow, graph.Group("", graph.Group("", deep)))
	graph.Renumber(root)
	tr := New(root)

	s1, _ := tr.String(shallow)
	s2, _ := tr.String(deep)
	if s1 == s2 {
		t.Fatal("full strings at different depths should differ in indentation")
	}
	k1, err := tr.Key(shallow)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := tr.Key(deep)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Error("keys of structurally equal subtrees should match")
	}
	id, _ := tr.IDString(shallow)
	if k1 != sha256.Sum256([]byte(id)) {
		t.Error("Key should be the SHA-256 of the ID string")
	}
}
