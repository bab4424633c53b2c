package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bep/debounce"

	"github.com/chazu/lathe/pkg/ast"
	"github.com/chazu/lathe/pkg/csg"
	"github.com/chazu/lathe/pkg/fsig"
	"github.com/chazu/lathe/pkg/graph"
	"github.com/chazu/lathe/pkg/pipeline"
	"github.com/chazu/lathe/pkg/worker"
)

// Cycle outcomes, as counted by metrics.
const (
	outcomeComplete  = "complete"
	outcomeUnchanged = "unchanged"
	outcomeCancelled = "cancelled"
	outcomeFailed    = "failed"
)

func respond(reply chan error, err error) {
	if reply != nil {
		reply <- err
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case eventRequest:
		s.request(ev.action, ev.reply)
	case eventTick:
		s.request(ActionReloadPreview, nil)
	case eventDebounce:
		s.debounceFired(ev.cascade)
	}
}

func (s *Session) request(a Action, reply chan error) {
	switch a {
	case ActionRenderExact:
		if s.worker == nil {
			respond(reply, ErrNoWorker)
			return
		}
	case ActionRenderPreview, ActionReloadPreview:
	default:
		s.immediate(a, reply)
		return
	}

	token, ok := s.guard.TryEnter()
	if !ok {
		log.Debugf("%s refused: busy", a)
		respond(reply, ErrBusy)
		return
	}
	s.stopAutoReload()
	s.cancel.Store(false)
	s.cur = &cycle{
		token:    token,
		reply:    reply,
		reload:   a == ActionReloadPreview,
		exact:    a == ActionRenderExact,
		start:    time.Now(),
		settings: s.settings.Settings(),
		outcome:  outcomeComplete,
	}
	log.Debugf("%s: starting cycle", a)
	s.compile(s.cur.reload, false)
}

// immediate runs the actions that complete without a cycle.
func (s *Session) immediate(a Action, reply chan error) {
	token, ok := s.guard.TryEnter()
	if !ok {
		respond(reply, ErrBusy)
		return
	}
	defer token.Release()

	var err error
	switch a {
	case ActionReloadDocument:
		err = s.reloadDocument()
	case ActionFlushCaches:
		s.libs.Flush()
		if s.worker != nil {
			s.worker.FlushCache()
		}
		s.print("Caches Flushed")
	case ActionDumpTree:
		err = s.dumpTree()
	case ActionDumpProducts:
		if s.products == nil {
			s.print("No CSG to dump. Please try compiling first...")
			break
		}
		var b strings.Builder
		if err = s.products.Dump(&b); err == nil {
			s.print(strings.TrimRight(b.String(), "\n"))
		}
	case ActionDumpAST:
		if s.module == nil {
			s.print("No AST to dump. Please try compiling first...")
			break
		}
		s.print(strings.TrimRight(s.module.Dump(), "\n"))
	default:
		err = fmt.Errorf("session: unknown action %d", int(a))
	}
	respond(reply, err)
}

func (s *Session) reloadDocument() error {
	path := s.doc.Path()
	if path == "" {
		return errors.New("session: document has no file")
	}
	s.fileChanged()
	if !s.confirmReload() {
		return ErrModified
	}
	if err := s.doc.Reload(); err != nil {
		s.print("ERROR: " + err.Error())
		return err
	}
	s.print(fmt.Sprintf("Loaded design '%s'.", path))
	return nil
}

func (s *Session) dumpTree() error {
	root := s.tree.Root()
	if root == nil {
		s.print("No CSG to dump. Please try compiling first...")
		return nil
	}
	text, err := s.tree.String(root)
	if err != nil {
		return err
	}
	s.print(strings.TrimRight(text, "\n"))
	return nil
}

// fileChanged reports whether the document's file signature differs from
// the last one seen, and records the new one.
func (s *Session) fileChanged() bool {
	path := s.doc.Path()
	if path == "" {
		return false
	}
	sig, ok := fsig.Of(path)
	if !ok || sig == s.docSig {
		return false
	}
	s.docSig = sig
	return true
}

func (s *Session) confirmReload() bool {
	if !s.doc.Modified() {
		return true
	}
	return s.opts.ConfirmReload != nil && s.opts.ConfirmReload()
}

// compile decides whether the document must be parsed, refreshes used
// libraries and either waits for a dependency cascade to settle or moves
// on to instantiation.
func (s *Session) compile(reload, force bool) {
	s.setState(StateDeciding)

	parse := !reload
	if reload {
		if s.fileChanged() && s.confirmReload() {
			if err := s.doc.Reload(); err != nil {
				log.Warningf("reloading %s: %v", s.doc.Path(), err)
			} else {
				parse = true
			}
		}
		if !parse && s.doc.Text() != s.lastText {
			parse = true
		}
	}
	if !parse && s.module != nil && s.module.IncludesChanged() {
		parse = true
	}

	changed := false
	if parse {
		s.setState(StateReparsing)
		s.parse()
		changed = true
	} else {
		s.setState(StateSkippedParse)
	}

	if s.module != nil && s.module.HandleDependencies(s.libs) {
		log.Debugf("used libraries changed")
		changed = true
	}
	s.warn(s.libs.Warnings()...)

	if reload && changed && s.module != nil && s.module.HasDependencies() {
		s.armDebounce()
		return
	}
	s.compileDone(changed || force)
}

func (s *Session) parse() {
	text, path := s.doc.Text(), s.doc.Path()
	s.lastText = text
	s.parseErr = nil

	s.print("Parsing design (AST generation)...")
	start := time.Now()
	m, err := s.parsers.Parse(text, path)
	s.metrics.ObservePhase("parse", time.Since(start).Seconds(), err)
	if err != nil {
		s.module = nil
		errPath, pos := path, -1
		var pe *ast.ParseError
		if errors.As(err, &pe) {
			pos = int(pe.Pos)
			if pe.Path != "" {
				errPath = pe.Path
			}
		}
		s.parseErr = pipeline.NewParseError(errPath, pos, err)
		log.Debugf("parse failed: %v", err)
		return
	}
	s.module = m
	s.warn(m.Warnings...)
}

func (s *Session) armDebounce() {
	s.setState(StateDependencyCascade)
	after := s.cur.settings.Reload.Debounce()
	if s.debounced == nil || after != s.debounceAfter {
		s.debounced = debounce.New(after)
		s.debounceAfter = after
	}
	s.cascade++
	gen := s.cascade
	s.debounced(func() {
		s.post(event{kind: eventDebounce, cascade: gen})
	})
}

func (s *Session) debounceFired(gen int) {
	if s.cur == nil || s.State() != StateDependencyCascade || gen != s.cascade {
		log.Debugf("dropping stale debounce %d", gen)
		return
	}
	if s.module != nil && s.module.HandleDependencies(s.libs) {
		s.warn(s.libs.Warnings()...)
		s.armDebounce()
		return
	}
	// The document itself or its includes may have changed meanwhile.
	s.compile(true, true)
}

func (s *Session) compileDone(changed bool) {
	if !changed {
		s.cur.outcome = outcomeUnchanged
		s.finish()
		return
	}
	s.cur.built = true
	if !s.instantiate() {
		s.finish()
		return
	}
	if s.cur.exact {
		s.renderExact()
		return
	}
	s.generate()
	s.finish()
}

func (s *Session) fail(err error) {
	s.cur.outcome = outcomeFailed
	s.cur.err = err
	s.print("ERROR: " + err.Error())
}

// teardown releases the current epoch. The renderer is detached before
// anything it may still reference goes away; chains and terms live in
// products and are dropped before the tree they were generated from.
func (s *Session) teardown() {
	s.renderer.Detach()
	s.products = nil
	s.mesh = nil
	s.tree.SetRoot(nil)
}

// instantiate builds the node tree of the parsed module and installs it.
// A failed reload keeps the previous epoch; a failed explicit cycle clears
// it.
func (s *Session) instantiate() bool {
	s.setState(StateInstantiating)
	root, err := s.build()
	if err != nil {
		if !s.cur.reload {
			s.teardown()
		}
		s.fail(err)
		return false
	}
	s.teardown()
	s.tree.SetRoot(root)
	if err := s.warm(s.tree, root); err != nil {
		log.Errorf("warming tree cache: %v", err)
		s.tree.SetRoot(nil)
		s.fail(&pipeline.CompileError{Reason: err, Pos: -1})
		return false
	}
	return true
}

func (s *Session) build() (*graph.Node, error) {
	if s.module == nil {
		if s.parseErr != nil {
			return nil, s.parseErr
		}
		return nil, pipeline.NoTopLevelObject()
	}

	s.print("Compiling design (CSG Tree generation)...")
	start := time.Now()
	abs, warnings := ast.Instantiate(s.module, s.libs)
	s.warn(warnings...)
	s.warn(s.libs.Warnings()...)
	if abs == nil {
		err := pipeline.NoTopLevelObject()
		s.metrics.ObservePhase("instantiate", time.Since(start).Seconds(), err)
		return nil, err
	}

	root := graph.FindTagged(abs, graph.TagRoot)
	if root == nil {
		root = abs
	}
	res := graph.ValidateAll(root)
	for _, w := range res.Warnings {
		s.warn(w.Message)
	}
	var err error
	if !res.OK() {
		err = &pipeline.CompileError{Reason: pipeline.ErrInvalidTree, Pos: -1, Err: res.Errors[0]}
	}
	s.metrics.ObservePhase("instantiate", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func (s *Session) progress(visited, total int) csg.Status {
	if s.opts.Progress != nil && s.opts.Progress(visited, total) == csg.Cancel {
		return csg.Cancel
	}
	if s.cancel.Load() || (s.ctx != nil && s.ctx.Err() != nil) {
		return csg.Cancel
	}
	return csg.Continue
}

func (s *Session) generate() {
	s.setState(StateGenerating)
	limits := s.cur.settings.Limits

	s.print("Compiling design (CSG Products generation)...")
	p, err := pipeline.Run(s.tree.Root(), s.evaluator, pipeline.Options{
		NormalizeLimit: limits.Normalize,
		RenderLimit:    limits.Render,
		Progress:       s.progress,
		Observer:       s.metrics,
	})
	if err != nil {
		s.fail(err)
		return
	}
	s.products = p
	if p.Outcome == pipeline.OutcomeCancelled {
		s.cur.outcome = outcomeCancelled
		s.print("CSG generation cancelled.")
		return
	}
	for _, w := range p.Warnings {
		s.warn(w.Message)
	}
	if p.Norm != nil {
		s.print(fmt.Sprintf("Normalized CSG tree has %d elements", p.Norm.LeafCount()))
	}

	s.metrics.SetChainEntries("main", p.Main.Len())
	s.metrics.SetChainEntries("highlight", p.Highlight.Len())
	s.metrics.SetChainEntries("background", p.Background.Len())
	if p.Main != nil || p.Highlight != nil || p.Background != nil {
		s.renderer.Attach(p.Main, p.Highlight, p.Background, p.Mode)
	}
}

func (s *Session) renderExact() {
	s.setState(StateRendering)
	root := s.tree.Root()
	key, err := s.tree.Key(root)
	if err != nil {
		s.fail(err)
		s.finish()
		return
	}
	s.print("Rendering Polygon Mesh...")
	h := s.worker.Submit(root, key)
	s.job = &h
	log.Debugf("submitted %s", h)
}

func (s *Session) complete(c worker.Completion) {
	if s.cur == nil || s.job == nil || c.Handle.ID != s.job.ID {
		log.Warningf("dropping stale completion %s", c.Handle)
		return
	}
	s.job = nil
	if c.Err != nil {
		s.fail(fmt.Errorf("rendering failed: %w", c.Err))
		s.finish()
		return
	}
	s.mesh = c.Result
	s.renderer.ShowMesh(c.Result.Mesh)
	if c.Result.Cached {
		s.print("Rendering finished (cached).")
	} else {
		s.print("Rendering finished.")
	}
	s.print(fmt.Sprintf("Vertices: %d, Triangles: %d", c.Result.Vertices, c.Result.Triangles))
	s.finish()
}

// finish ends the current cycle, releases the guard and answers the
// request that started it.
func (s *Session) finish() {
	c := s.cur
	s.setState(StateDone)
	if c.built && c.outcome == outcomeComplete {
		s.print(fmt.Sprintf("Total rendering time: %s", time.Since(c.start).Round(time.Millisecond)))
	}
	s.metrics.ObserveCycle(c.outcome)
	log.Debugf("cycle %s in %s", c.outcome, time.Since(c.start))

	s.cur = nil
	c.token.Release()
	s.setState(StateIdle)
	s.restartAutoReload(c.settings)
	respond(c.reply, c.err)
}
