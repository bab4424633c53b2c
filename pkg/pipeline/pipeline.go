// Package pipeline turns an instantiated node tree into the products a
// renderer consumes: the raw term, its normalized form, and the main,
// highlight and background chains.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/lathe/pkg/csg"
	"github.com/chazu/lathe/pkg/graph"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lathe.pipeline")

// Default limits, overridden by settings.
const (
	DefaultNormalizeLimit = 4000
	DefaultRenderLimit    = 2000
)

// Outcome is how a pipeline run ended.
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RenderMode selects how a renderer should draw the chains.
type RenderMode int

const (
	ModeInteractive RenderMode = iota
	ModeFallback
)

func (m RenderMode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Observer receives the duration of each pipeline phase.
type Observer interface {
	ObservePhase(phase string, seconds float64, err error)
}

// Options configures one run.
type Options struct {
	NormalizeLimit int
	RenderLimit    int
	Progress       csg.Progress
	Observer       Observer
}

func (o Options) withDefaults() Options {
	if o.NormalizeLimit <= 0 {
		o.NormalizeLimit = DefaultNormalizeLimit
	}
	if o.RenderLimit <= 0 {
		o.RenderLimit = DefaultRenderLimit
	}
	return o
}

// Products is the artifact bundle of one compilation epoch. Absent terms
// and chains are nil; an absent chain means there is nothing to draw.
type Products struct {
	Raw         *csg.Term
	Norm        *csg.Term
	Highlights  []*csg.Term
	Backgrounds []*csg.Term

	Main       *csg.Chain
	Highlight  *csg.Chain
	Background *csg.Chain

	Outcome  Outcome
	Mode     RenderMode
	Warnings []Warning
	Visited  int
}

func (p *Products) warn(kind WarningKind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warningf("%s", msg)
	p.Warnings = append(p.Warnings, Warning{Kind: kind, Message: msg})
}

// Run generates, normalizes and flattens the tree rooted at root. Phases
// run strictly in that order. A cancelled generation returns products with
// OutcomeCancelled and nothing else set.
func Run(root *graph.Node, ev csg.Evaluator, opts Options) (*Products, error) {
	opts = opts.withDefaults()
	p := &Products{}

	start := time.Now()
	gen, err := csg.Generate(root, ev, opts.Progress)
	observe(opts.Observer, "generate", start, err)
	if err != nil {
		return nil, &CompileError{Reason: ErrGeneration, Pos: -1, Err: err}
	}
	p.Visited = gen.Visited
	if gen.Cancelled {
		log.Debugf("generation cancelled after %d nodes", gen.Visited)
		p.Outcome = OutcomeCancelled
		return p, nil
	}
	p.Raw = gen.Root

	start = time.Now()
	p.Norm = p.normalize(p.Raw, opts.NormalizeLimit)
	if p.Norm == nil && len(p.Warnings) == 0 {
		p.warn(WarnEmptyMain, "CSG normalization resulted in an empty tree")
	}
	for _, t := range gen.Highlights {
		if n := p.normalize(t, opts.NormalizeLimit); n != nil {
			p.Highlights = append(p.Highlights, n)
		}
	}
	for _, t := range gen.Backgrounds {
		if n := p.normalize(t, opts.NormalizeLimit); n != nil {
			p.Backgrounds = append(p.Backgrounds, n)
		}
	}
	observe(opts.Observer, "normalize", start, nil)

	start = time.Now()
	p.Main = csg.Import(p.Norm)
	if len(p.Highlights) > 0 {
		p.Highlight = csg.ImportAll(p.Highlights)
	}
	if len(p.Backgrounds) > 0 {
		p.Background = csg.ImportAll(p.Backgrounds)
	}
	observe(opts.Observer, "chain", start, nil)

	if n := p.Main.Len(); n > opts.RenderLimit {
		p.Mode = ModeFallback
		p.warn(WarnRenderSizeExceeded,
			"Normalized tree has %d elements! Interactive rendering has been disabled.", n)
	}
	log.Debugf("products: %d raw leaves, %d chain entries, mode %s",
		p.Raw.LeafCount(), p.Main.Len(), p.Mode)
	return p, nil
}

// normalize applies the leaf limit, recording an overflow warning.
func (p *Products) normalize(t *csg.Term, limit int) *csg.Term {
	n, err := csg.Normalize(t, limit)
	if errors.Is(err, csg.ErrNormalizationOverflow) {
		p.warn(WarnNormalizationOverflow,
			"Normalized tree is growing past %d elements. Aborting normalization.", limit)
		return nil
	}
	return n
}

func observe(o Observer, phase string, start time.Time, err error) {
	if o != nil {
		o.ObservePhase(phase, time.Since(start).Seconds(), err)
	}
}
