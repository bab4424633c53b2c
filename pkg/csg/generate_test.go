package csg_test

import (
	"errors"
	"testing"

	"github.com/chazu/lathe/pkg/csg"
	"github.com/chazu/lathe/pkg/graph"
)

// fakeEvaluator returns an empty box for every primitive and fails on
// the node IDs listed in fail.
type fakeEvaluator struct {
	fail  map[int]bool
	calls int
}

var errBadLeaf = errors.New("bad leaf")

func (e *fakeEvaluator) Leaf(n *graph.Node) (csg.Geometry, error) {
	e.calls++
	if e.fail[n.ID] {
		return nil, errBadLeaf
	}
	return box{}, nil
}

func generate(t *testing.T, root *graph.Node) *csg.Generated {
	t.Helper()
	graph.Renumber(root)
	g, err := csg.Generate(root, &fakeEvaluator{}, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return g
}

func unit() *graph.Node {
	return graph.Cube(graph.Vec3{X: 1, Y: 1, Z: 1}, false)
}

func TestGenerateSingleCube(t *testing.T) {
	g := generate(t, graph.Group("", unit()))
	if got := g.Root.String(); got != "cube1" {
		t.Errorf("Root = %s, want cube1", got)
	}
	if g.Root.LeafCount() != 1 {
		t.Errorf("LeafCount() = %d, want 1", g.Root.LeafCount())
	}
	if len(g.Highlights) != 0 || len(g.Backgrounds) != 0 {
		t.Errorf("unexpected tagged terms: %d highlights, %d backgrounds", len(g.Highlights), len(g.Backgrounds))
	}
	if g.Visited != 2 {
		t.Errorf("Visited = %d, want 2", g.Visited)
	}
}

func TestGenerateBooleans(t *testing.T) {
	tests := []struct {
		name string
		root *graph.Node
		want string
	}{
		{
			"difference",
			graph.Boolean(graph.OpDifference, unit(), graph.Sphere(1), graph.Sphere(2)),
			"((cube1 - sphere2) - sphere3)",
		},
		{
			"intersection",
			graph.Boolean(graph.OpIntersection, unit(), graph.Sphere(1)),
			"(cube1 * sphere2)",
		},
		{
			"group is a union",
			graph.Group("m", unit(), graph.Boolean(graph.OpUnion, graph.Sphere(1), graph.Cylinder(1, 1, false))),
			"(cube1 + (sphere3 + cylinder4))",
		},
		{
			"empty group vanishes",
			graph.Boolean(graph.OpDifference, graph.Group(""), unit(), graph.Sphere(1)),
			"(cube2 - sphere3)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := generate(t, tt.root).Root.String(); got != tt.want {
				t.Errorf("Root = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGeneratePlacement(t *testing.T) {
	v := graph.Vec3{X: 1, Y: 2, Z: 3}
	root := graph.Transform(graph.OpTranslate, v,
		graph.Transform(graph.OpScale, graph.Vec3{X: 2, Y: 2, Z: 2}, unit()))
	g := generate(t, root)

	if !g.Root.IsLeaf() {
		t.Fatalf("Root = %s, want a leaf", g.Root)
	}
	if len(g.Root.Placement) != 2 {
		t.Fatalf("Placement has %d ops, want 2", len(g.Root.Placement))
	}
	want := graph.TranslateMatrix(v).Mul(graph.ScaleMatrix(graph.Vec3{X: 2, Y: 2, Z: 2}))
	if g.Root.Matrix() != want {
		t.Errorf("Matrix() = %v, want %v", g.Root.Matrix(), want)
	}
}

func TestGenerateHighlight(t *testing.T) {
	g := generate(t, graph.Group("", unit(), graph.Sphere(1).WithTags(graph.TagHighlight)))

	if got := g.Root.String(); got != "(cube1 + sphere2)" {
		t.Errorf("Root = %s, want (cube1 + sphere2)", got)
	}
	if len(g.Highlights) != 1 || g.Highlights[0].String() != "sphere2" {
		t.Fatalf("Highlights = %v, want [sphere2]", g.Highlights)
	}
	if g.Highlights[0].Flags != csg.FlagHighlight {
		t.Errorf("highlight flags = %v, want FlagHighlight", g.Highlights[0].Flags)
	}
}

func TestGenerateBackground(t *testing.T) {
	bg := graph.Transform(graph.OpTranslate, graph.Vec3{X: 5}, graph.Sphere(1)).WithTags(graph.TagBackground)
	g := generate(t, graph.Group("", unit(), bg))

	if got := g.Root.String(); got != "cube1" {
		t.Errorf("Root = %s, want cube1", got)
	}
	if len(g.Backgrounds) != 1 || g.Backgrounds[0].String() != "sphere3" {
		t.Fatalf("Backgrounds = %v, want [sphere3]", g.Backgrounds)
	}
	if g.Backgrounds[0].Flags != csg.FlagBackground {
		t.Errorf("background flags = %v, want FlagBackground", g.Backgrounds[0].Flags)
	}

	only := generate(t, graph.Group("", graph.Sphere(1).WithTags(graph.TagBackground)))
	if only.Root != nil {
		t.Errorf("Root = %s, want no term when everything is background", only.Root)
	}
}

func TestGenerateCancel(t *testing.T) {
	root := graph.Group("", unit(), unit(), unit())
	graph.Renumber(root)
	ev := &fakeEvaluator{}
	g, err := csg.Generate(root, ev, func(visited, _ int) csg.Status {
		if visited >= 2 {
			return csg.Cancel
		}
		return csg.Continue
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !g.Cancelled {
		t.Fatal("Cancelled = false, want true")
	}
	if g.Root != nil || g.Highlights != nil || g.Backgrounds != nil {
		t.Error("cancelled generation should produce no terms")
	}
	if ev.calls != 2 {
		t.Errorf("evaluator called %d times, want 2", ev.calls)
	}
}

func TestGenerateProgressThrottled(t *testing.T) {
	children := make([]*graph.Node, 2999)
	for i := range children {
		children[i] = unit()
	}
	root := graph.Group("", children...)
	graph.Renumber(root)

	var calls []int
	_, err := csg.Generate(root, &fakeEvaluator{}, func(visited, total int) csg.Status {
		if total != 3000 {
			t.Fatalf("total = %d, want 3000", total)
		}
		calls = append(calls, visited)
		return csg.Continue
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(calls) > 1001 {
		t.Errorf("progress called %d times, want at most 1001", len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] <= calls[i-1] {
			t.Fatalf("visited counts not increasing: %d then %d", calls[i-1], calls[i])
		}
	}
	if calls[len(calls)-1] != 3000 {
		t.Errorf("last progress call visited = %d, want 3000", calls[len(calls)-1])
	}
}

func TestGenerateEvaluatorError(t *testing.T) {
	root := graph.Group("", unit(), graph.Sphere(1))
	graph.Renumber(root)
	_, err := csg.Generate(root, &fakeEvaluator{fail: map[int]bool{2: true}}, nil)
	if !errors.Is(err, csg.ErrEvaluation) || !errors.Is(err, errBadLeaf) {
		t.Errorf("error = %v, want ErrEvaluation wrapping the evaluator error", err)
	}
}

func TestGenerateNilRoot(t *testing.T) {
	g, err := csg.Generate(nil, &fakeEvaluator{}, nil)
	if err != nil || g.Root != nil || g.Cancelled {
		t.Errorf("Generate(nil) = %+v, %v", g, err)
	}
}
