package csg

import (
	"errors"
	"fmt"

	"github.com/chazu/lathe/pkg/graph"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lathe.csg")

// Status is returned by a progress callback to continue or abort
// generation.
type Status int

const (
	Continue Status = iota
	Cancel
)

// Progress is called with a monotonically increasing count of visited
// nodes and the total node count. Calls are throttled to whole permille
// steps.
type Progress func(visited, total int) Status

// Evaluator builds the leaf geometry of a primitive node. The geometry is
// untransformed; placements are carried on the term.
type Evaluator interface {
	Leaf(n *graph.Node) (Geometry, error)
}

// ErrEvaluation wraps failures reported by an Evaluator.
var ErrEvaluation = errors.New("csg: leaf evaluation failed")

// Generated holds the terms produced by one traversal.
type Generated struct {
	Root        *Term
	Highlights  []*Term
	Backgrounds []*Term
	Visited     int
	Cancelled   bool
}

// Generate traverses the tree rooted at root once and builds its term.
// Highlighted subtrees are also collected into Highlights and still
// contribute to the root term; background subtrees are collected into
// Backgrounds and do not. If progress returns Cancel the traversal stops
// and the result is marked Cancelled with no terms.
func Generate(root *graph.Node, ev Evaluator, progress Progress) (*Generated, error) {
	g := &generator{ev: ev, progress: progress}
	if root == nil {
		return &Generated{}, nil
	}
	g.total = graph.Count(root)
	g.stack = []*frame{{}}
	graph.Walk(root, g)

	out := &Generated{Visited: g.visited}
	switch {
	case g.err != nil:
		return nil, g.err
	case g.cancelled:
		out.Cancelled = true
		return out, nil
	}
	out.Root = g.stack[0].result(OpUnion)
	out.Highlights = g.highlights
	out.Backgrounds = g.backgrounds
	return out, nil
}

// frame collects the child terms of one node.
type frame struct {
	placement graph.Placement
	flags     Flag
	terms     []*Term
}

// result folds the collected terms with op. Difference subtracts every
// later term from the first.
func (f *frame) result(op OpType) *Term {
	var acc *Term
	for i, t := range f.terms {
		if i == 0 {
			acc = t
			continue
		}
		acc = NewOp(op, acc, t)
	}
	return acc
}

type generator struct {
	ev       Evaluator
	progress Progress

	stack       []*frame
	highlights  []*Term
	backgrounds []*Term

	total     int
	visited   int
	permille  int
	cancelled bool
	err       error
}

func (g *generator) top() *frame {
	return g.stack[len(g.stack)-1]
}

// Enter implements graph.Visitor.
func (g *generator) Enter(n *graph.Node, _ int) bool {
	parent := g.top()
	if g.cancelled || g.err != nil {
		// Leave still pops a frame for pruned nodes.
		g.stack = append(g.stack, parent)
		return false
	}
	f := &frame{placement: parent.placement, flags: parent.flags}
	if n.Tags.Has(graph.TagHighlight) {
		f.flags |= FlagHighlight
	}
	if n.Tags.Has(graph.TagBackground) {
		f.flags |= FlagBackground
	}
	if td, ok := n.Data.(graph.TransformData); ok {
		f.placement = f.placement.Push(td)
	}
	g.stack = append(g.stack, f)
	return true
}

// Leave implements graph.Visitor.
func (g *generator) Leave(n *graph.Node, _ int) {
	f := g.top()
	g.stack = g.stack[:len(g.stack)-1]
	if g.cancelled || g.err != nil {
		return
	}

	t, err := g.term(n, f)
	if err != nil {
		g.err = err
		return
	}
	if t != nil {
		if n.Tags.Has(graph.TagHighlight) {
			g.highlights = append(g.highlights, t)
		}
		if n.Tags.Has(graph.TagBackground) {
			g.backgrounds = append(g.backgrounds, t)
			t = nil
		}
	}
	if t != nil {
		parent := g.top()
		parent.terms = append(parent.terms, t)
	}
	g.report()
}

// term builds the term of n from its collected children.
func (g *generator) term(n *graph.Node, f *frame) (*Term, error) {
	switch data := n.Data.(type) {
	case graph.PrimitiveData:
		geom, err := g.ev.Leaf(n)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrEvaluation, n.ID, err)
		}
		if geom == nil {
			return nil, nil
		}
		label := fmt.Sprintf("%s%d", data.Shape, n.ID)
		return NewLeaf(geom, f.placement, label, n.ID, f.flags), nil
	case graph.BooleanData:
		switch data.Op {
		case graph.OpDifference:
			return f.result(OpDifference), nil
		case graph.OpIntersection:
			return f.result(OpIntersection), nil
		}
	}
	return f.result(OpUnion), nil
}

// report advances the visited count and invokes the progress callback
// when the permille value changes.
func (g *generator) report() {
	g.visited++
	if g.progress == nil || g.total == 0 {
		return
	}
	pm := g.visited * 1000 / g.total
	if pm <= g.permille && g.visited > 1 {
		return
	}
	g.permille = pm
	if g.progress(g.visited, g.total) == Cancel {
		log.Debugf("generation cancelled after %d of %d nodes", g.visited, g.total)
		g.cancelled = true
	}
}
