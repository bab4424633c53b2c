package ast_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/lathe/pkg/ast"
	"github.com/chazu/lathe/pkg/graph"
	"github.com/chazu/lathe/pkg/modcache"
	"github.com/chazu/lathe/pkg/scad"
)

func instantiate(t *testing.T, src string) (*graph.Node, []string) {
	t.Helper()
	m, err := scad.Parse(src, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ast.Instantiate(m, nil)
}

func TestInstantiateSingleCube(t *testing.T) {
	root, warnings := instantiate(t, "cube(1);")
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if root == nil || root.Kind != graph.KindGroup || len(root.Children) != 1 {
		t.Fatalf("root = %+v", root)
	}
	leaf := root.Children[0]
	want := graph.PrimitiveData{Shape: graph.ShapeCube, Size: graph.Vec3{X: 1, Y: 1, Z: 1}}
	if leaf.Data != want {
		t.Errorf("leaf = %+v, want %+v", leaf.Data, want)
	}
	if root.ID != 0 || leaf.ID != 1 {
		t.Errorf("ids = %d, %d; want 0, 1", root.ID, leaf.ID)
	}
}

func TestInstantiateNothing(t *testing.T) {
	for _, src := range []string{"", "x = 1;", "*cube(1);", "module m() { cube(1); }"} {
		if root, _ := instantiate(t, src); root != nil {
			t.Errorf("%q: root = %v, want nil", src, root)
		}
	}
}

func TestInstantiateBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"cube([1, 2, 3], center = true);", "cube(size = [1, 2, 3], center = true)"},
		{"cube(size = 2);", "cube(size = [2, 2, 2], center = false)"},
		{"sphere(d = 4);", "sphere(r = 2)"},
		{"sphere();", "sphere(r = 1)"},
		{"cylinder(10, 2, center = true);", "cylinder(h = 10, r = 2, center = true)"},
		{"cylinder(h = 3, d = 1);", "cylinder(h = 3, r = 0.5, center = false)"},
		{"translate([1, 2]) cube();", "translate([1, 2, 0])"},
		{"rotate(45) cube();", "rotate([0, 0, 45])"},
		{"rotate(a = 30, v = [1, 0, 0]) cube();", "rotate([30, 0, 0])"},
		{"rotate([10, 20, 30]) cube();", "rotate([10, 20, 30])"},
		{"scale(2) cube();", "scale([2, 2, 2])"},
		{"scale([2, 3]) cube();", "scale([2, 3, 1])"},
		{"difference() { cube(); sphere(); }", "difference()"},
		{"group() cube();", "group()"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			root, warnings := instantiate(t, tt.src)
			if len(warnings) != 0 {
				t.Errorf("warnings = %v", warnings)
			}
			if got := root.Children[0].String(); got != tt.want {
				t.Errorf("header = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInstantiateExpressions(t *testing.T) {
	root, _ := instantiate(t, "w = 4; h = w / 2 + 1; translate(-[w, h, 1] * 2) cube([w, h, 2 * (1 + 1)]);")
	tr := root.Children[0]
	if got := tr.String(); got != "translate([-8, -6, -2])" {
		t.Errorf("translate = %q", got)
	}
	if got := tr.Children[0].String(); got != "cube(size = [4, 3, 4], center = false)" {
		t.Errorf("cube = %q", got)
	}
}

func TestInstantiateModifiers(t *testing.T) {
	root, _ := instantiate(t, "#cube(); %sphere(); translate([1,0,0]) !cylinder(); *cube(5);")
	if len(root.Children) != 3 {
		t.Fatalf("children = %d, want 3 (disabled object dropped)", len(root.Children))
	}
	if !root.Children[0].Tags.Has(graph.TagHighlight) {
		t.Error("cube should be highlighted")
	}
	if !root.Children[1].Tags.Has(graph.TagBackground) {
		t.Error("sphere should be background")
	}
	if r := graph.FindTagged(root, graph.TagRoot); r == nil || r.Data.(graph.PrimitiveData).Shape != graph.ShapeCylinder {
		t.Errorf("root tag on %v, want cylinder", r)
	}
}

func TestInstantiateUserModules(t *testing.T) {
	src := `
module post(h = 10, r = h / 5) {
	cylinder(h = h, r = r);
}
module frame(n) {
	translate([n, 0, 0]) children(0);
	translate([-n, 0, 0]) children();
}
frame(3) { post(); post(h = 20); }
`
	root, warnings := instantiate(t, src)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	frame := root.Children[0]
	if frame.Data.(graph.GroupData).Module != "frame" || len(frame.Children) != 2 {
		t.Fatalf("frame = %+v", frame)
	}

	first := frame.Children[0].Children[0]
	if first.Data.(graph.GroupData).Module != "post" {
		t.Errorf("children(0) = %v, want post group", first)
	}
	if got := first.Children[0].String(); got != "cylinder(h = 10, r = 2, center = false)" {
		t.Errorf("post() = %q", got)
	}

	all := frame.Children[1].Children[0]
	if len(all.Children) != 2 {
		t.Fatalf("children() = %d nodes, want 2", len(all.Children))
	}
	if got := all.Children[1].Children[0].String(); got != "cylinder(h = 20, r = 4, center = false)" {
		t.Errorf("post(h = 20) = %q", got)
	}
}

func TestInstantiateWarnings(t *testing.T) {
	_, warnings := instantiate(t, "frobnicate(); cube(size = missing); module r() { r(); } r();")
	joined := strings.Join(warnings, "\n")
	for _, want := range []string{
		"Ignoring unknown module 'frobnicate'.",
		"Ignoring unknown variable 'missing'.",
		"Recursion detected calling module 'r'.",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing warning %q in %v", want, warnings)
		}
	}
}

func TestInstantiateUsedLibrary(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.scad")
	if err := os.WriteFile(lib, []byte("t = 2;\nmodule plate() { cube([10, 10, t]); }\nsphere(99);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := scad.Parse("use <lib.scad>\nplate();", filepath.Join(dir, "main.scad"))
	if err != nil {
		t.Fatal(err)
	}

	cache := modcache.New(scad.Parse)
	if !m.HandleDependencies(cache) {
		t.Error("first dependency pass should report a change")
	}
	root, warnings := ast.Instantiate(m, cache)
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(root.Children) != 1 {
		t.Fatalf("children = %d, want only plate()", len(root.Children))
	}
	if got := root.Children[0].Children[0].String(); got != "cube(size = [10, 10, 2], center = false)" {
		t.Errorf("plate = %q", got)
	}
}

func TestIncludesChanged(t *testing.T) {
	dir := t.TempDir()
	inc := filepath.Join(dir, "inc.scad")
	t0 := time.Unix(1700000000, 0)
	if err := os.WriteFile(inc, []byte("cube(1);"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(inc, t0, t0); err != nil {
		t.Fatal(err)
	}

	m, err := scad.Parse("include <inc.scad>", filepath.Join(dir, "main.scad"))
	if err != nil {
		t.Fatal(err)
	}
	if !m.HasDependencies() {
		t.Error("module with an include has dependencies")
	}
	if m.IncludesChanged() {
		t.Error("includes should be unchanged right after parsing")
	}
	if err := os.Chtimes(inc, t0.Add(time.Second), t0.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if !m.IncludesChanged() {
		t.Error("touching an include should be detected")
	}
}

func TestDump(t *testing.T) {
	m, err := scad.Parse("x = 1 + 2;\nmodule m(a = 1) { cube(a); }\n#translate([x, 0, 0]) { m(); }", "")
	if err != nil {
		t.Fatal(err)
	}
	want := "x = (1 + 2);\n" +
		"module m(a = 1) {\n" +
		"\tcube(a);\n" +
		"}\n" +
		"#translate([x, 0, 0]) {\n" +
		"\tm();\n" +
		"}\n"
	if got := m.Dump(); got != want {
		t.Errorf("Dump =\n%s\nwant\n%s", got, want)
	}
}

func TestLineColOffset(t *testing.T) {
	src := "ab\ncd\nef"
	line, col := ast.LineCol(src, 4)
	if line != 2 || col != 2 {
		t.Errorf("LineCol(4) = %d:%d, want 2:2", line, col)
	}
	if off := ast.Offset(src, 3, 1); off != 6 {
		t.Errorf("Offset(3,1) = %d, want 6", off)
	}
}
