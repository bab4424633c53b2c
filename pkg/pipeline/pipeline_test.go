package pipeline_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/lathe/pkg/csg"
	"github.com/chazu/lathe/pkg/graph"
	"github.com/chazu/lathe/pkg/pipeline"
	"github.com/fxamacker/cbor/v2"
)

type box struct{}

func (box) BoundingBox() (min, max [3]float64) { return }

type evaluator struct {
	err error
}

func (e evaluator) Leaf(*graph.Node) (csg.Geometry, error) {
	if e.err != nil {
		return nil, e.err
	}
	return box{}, nil
}

type phaseRecorder struct {
	phases []string
}

func (r *phaseRecorder) ObservePhase(phase string, seconds float64, _ error) {
	if seconds < 0 {
		panic("negative duration")
	}
	r.phases = append(r.phases, phase)
}

func cubes(n int) *graph.Node {
	children := make([]*graph.Node, n)
	for i := range children {
		children[i] = graph.Cube(graph.Vec3{X: 1, Y: 1, Z: 1}, false)
	}
	root := graph.Group("", children...)
	graph.Renumber(root)
	return root
}

func run(t *testing.T, root *graph.Node, opts pipeline.Options) *pipeline.Products {
	t.Helper()
	graph.Renumber(root)
	p, err := pipeline.Run(root, evaluator{}, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return p
}

func TestSingleCube(t *testing.T) {
	p := run(t, cubes(1), pipeline.Options{})

	if p.Raw.LeafCount() != 1 {
		t.Fatalf("raw term has %d leaves, want 1", p.Raw.LeafCount())
	}
	if p.Norm != p.Raw {
		t.Errorf("normalized term %s differs from raw %s", p.Norm, p.Raw)
	}
	if p.Main.Len() != 1 {
		t.Errorf("main chain has %d entries, want 1", p.Main.Len())
	}
	if p.Highlight != nil || p.Background != nil {
		t.Error("highlight and background chains should be absent")
	}
	if p.Mode != pipeline.ModeInteractive {
		t.Errorf("Mode = %s, want interactive", p.Mode)
	}
	if len(p.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", p.Warnings)
	}
}

func TestNormalizationOverflow(t *testing.T) {
	const limit = 10
	p := run(t, cubes(limit+1), pipeline.Options{NormalizeLimit: limit})

	if p.Raw.LeafCount() != limit+1 {
		t.Fatalf("raw term has %d leaves, want %d", p.Raw.LeafCount(), limit+1)
	}
	if p.Norm != nil || p.Main != nil {
		t.Errorf("expected absent normalized term and chain, got %s / %s", p.Norm, p.Main)
	}
	if len(p.Warnings) != 1 || p.Warnings[0].Kind != pipeline.WarnNormalizationOverflow {
		t.Fatalf("Warnings = %v, want one overflow warning", p.Warnings)
	}
	if !strings.Contains(p.Warnings[0].Message, "growing past 10 elements") {
		t.Errorf("warning message = %q", p.Warnings[0].Message)
	}

	atLimit := run(t, cubes(limit), pipeline.Options{NormalizeLimit: limit})
	if atLimit.Main.Len() != limit {
		t.Errorf("at the limit: main chain has %d entries, want %d", atLimit.Main.Len(), limit)
	}
}

func TestRenderSizeExceeded(t *testing.T) {
	p := run(t, cubes(5), pipeline.Options{RenderLimit: 3})

	if p.Main.Len() != 5 {
		t.Errorf("main chain has %d entries, want 5", p.Main.Len())
	}
	if p.Mode != pipeline.ModeFallback {
		t.Errorf("Mode = %s, want fallback", p.Mode)
	}
	if len(p.Warnings) != 1 || p.Warnings[0].Kind != pipeline.WarnRenderSizeExceeded {
		t.Errorf("Warnings = %v, want one render size warning", p.Warnings)
	}
}

func TestEmptyMain(t *testing.T) {
	root := graph.Group("", graph.Sphere(1).WithTags(graph.TagBackground))
	p := run(t, root, pipeline.Options{})

	if p.Norm != nil || p.Main != nil {
		t.Error("main term and chain should be absent")
	}
	if len(p.Warnings) != 1 || p.Warnings[0].Kind != pipeline.WarnEmptyMain {
		t.Errorf("Warnings = %v, want one empty tree warning", p.Warnings)
	}
	if p.Background.Len() != 1 {
		t.Errorf("background chain has %d entries, want 1", p.Background.Len())
	}
}

func TestHighlightChain(t *testing.T) {
	root := graph.Boolean(graph.OpDifference,
		graph.Cube(graph.Vec3{X: 2, Y: 2, Z: 2}, true),
		graph.Sphere(1).WithTags(graph.TagHighlight),
		graph.Cylinder(3, 0.5, true).WithTags(graph.TagHighlight))
	p := run(t, root, pipeline.Options{})

	if got := p.Main.String(); got != "+cube1 -sphere2 -cylinder3" {
		t.Errorf("main chain = %q", got)
	}
	if got := p.Highlight.String(); got != "+sphere2\n+cylinder3" {
		t.Errorf("highlight chain = %q", got)
	}
	if p.Background != nil {
		t.Error("background chain should be absent")
	}
	for _, e := range p.Highlight.Entries {
		if e.Flags != csg.FlagHighlight {
			t.Errorf("highlight entry %s flags = %v", e.Label, e.Flags)
		}
	}
}

func TestCancelled(t *testing.T) {
	p, err := pipeline.Run(cubes(3), evaluator{}, pipeline.Options{
		Progress: func(int, int) csg.Status { return csg.Cancel },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.Outcome != pipeline.OutcomeCancelled {
		t.Fatalf("Outcome = %s, want cancelled", p.Outcome)
	}
	if p.Raw != nil || p.Norm != nil || p.Main != nil || len(p.Warnings) != 0 {
		t.Error("cancelled run should produce nothing")
	}
}

func TestGenerationError(t *testing.T) {
	leafErr := errors.New("kernel exploded")
	_, err := pipeline.Run(cubes(1), evaluator{err: leafErr}, pipeline.Options{})

	var ce *pipeline.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CompileError", err)
	}
	if !errors.Is(err, pipeline.ErrGeneration) || !errors.Is(err, leafErr) {
		t.Errorf("error = %v, want ErrGeneration wrapping the leaf error", err)
	}
}

func TestObserverPhases(t *testing.T) {
	rec := &phaseRecorder{}
	run(t, cubes(2), pipeline.Options{Observer: rec})
	if got := strings.Join(rec.phases, ","); got != "generate,normalize,chain" {
		t.Errorf("phases = %s, want generate,normalize,chain", got)
	}
}

func TestDumpAndRecord(t *testing.T) {
	p := run(t, cubes(2), pipeline.Options{})

	var b strings.Builder
	if err := p.Dump(&b); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	for _, want := range []string{
		"raw term: (cube1 + cube2)\n",
		"main chain: 2 entries\n\t+cube1\n\t+cube2\n",
		"highlight chain: none\n",
	} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("Dump() missing %q in:\n%s", want, b.String())
		}
	}

	data, err := p.MarshalCBOR()
	if err != nil {
		t.Fatalf("MarshalCBOR() error = %v", err)
	}
	var r pipeline.Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Outcome != "complete" || r.Main == nil || len(r.Main.Entries) != 2 || r.Highlight != nil {
		t.Errorf("decoded record = %+v", r)
	}
}

func TestCompileErrorMessages(t *testing.T) {
	if got := pipeline.NoTopLevelObject().Error(); got != "Compilation failed! (no top level object found)" {
		t.Errorf("NoTopLevelObject() = %q", got)
	}
	perr := pipeline.NewParseError("a.scad", 7, errors.New("a.scad:1:8: syntax error"))
	if got := perr.Error(); got != "Compilation failed! (a.scad:1:8: syntax error)" {
		t.Errorf("parse error = %q", got)
	}
	if !errors.Is(perr, pipeline.ErrParseFailure) || perr.Pos != 7 || perr.Path != "a.scad" {
		t.Errorf("parse error = %+v", perr)
	}
}
