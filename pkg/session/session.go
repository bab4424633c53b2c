// Package session runs compilation cycles for one open document. All
// cycle state is owned by a single event loop goroutine; requests, timers
// and worker completions reach it through Dispatch.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/lathe/pkg/ast"
	"github.com/chazu/lathe/pkg/config"
	"github.com/chazu/lathe/pkg/csg"
	"github.com/chazu/lathe/pkg/fsig"
	"github.com/chazu/lathe/pkg/graph"
	"github.com/chazu/lathe/pkg/guard"
	"github.com/chazu/lathe/pkg/metrics"
	"github.com/chazu/lathe/pkg/modcache"
	"github.com/chazu/lathe/pkg/pipeline"
	"github.com/chazu/lathe/pkg/tree"
	"github.com/chazu/lathe/pkg/worker"
)

var log = commonlog.GetLogger("lathe.session")

var (
	// ErrBusy is returned for requests made while a cycle is in flight.
	ErrBusy = errors.New("session: a compilation is in progress")

	// ErrNoWorker is returned by RenderExact when the session has no
	// geometry worker.
	ErrNoWorker = errors.New("session: no geometry worker")

	// ErrModified is returned by ReloadDocument when the buffer has unsaved
	// edits and the reload was not confirmed.
	ErrModified = errors.New("session: document has unsaved changes")

	// ErrClosed is returned for requests posted after Close.
	ErrClosed = errors.New("session: closed")
)

// Options configures a Session. Every field is optional.
type Options struct {
	Console  Console
	Renderer Renderer
	Worker   GeometryWorker
	Settings config.Source
	Metrics  *metrics.Metrics

	// ConfirmReload is asked before a file changed on disk replaces a
	// modified buffer. Nil refuses.
	ConfirmReload func() bool

	// Progress observes term generation. Returning csg.Cancel aborts it.
	Progress csg.Progress

	// Trace is called on the loop goroutine at every state change.
	Trace func(State)
}

type eventKind int

const (
	eventRequest eventKind = iota
	eventDebounce
	eventTick
)

type event struct {
	kind    eventKind
	action  Action
	reply   chan error
	cascade int
}

// cycle is one compilation in flight. The guard token is held from the
// request until the cycle finishes, including debounce waits and exact
// renders.
type cycle struct {
	token    *guard.Token
	reply    chan error
	reload   bool
	exact    bool
	start    time.Time
	settings config.Settings
	built    bool
	outcome  string
	err      error
}

// Session compiles one document.
type Session struct {
	doc       Document
	evaluator csg.Evaluator
	opts      Options
	console   Console
	renderer  Renderer
	worker    GeometryWorker
	settings  config.Source
	metrics   *metrics.Metrics

	parsers *Parsers
	libs    *modcache.Cache
	tree    *tree.Tree
	warm    func(*tree.Tree, *graph.Node) error
	guard   guard.Guard

	events    chan event
	quit      chan struct{}
	closeOnce sync.Once

	state  atomic.Int32
	cancel atomic.Bool
	// ctx is the context of the Dispatch call currently handling an event.
	ctx context.Context

	cur      *cycle
	module   *ast.Module
	parseErr *pipeline.CompileError
	lastText string
	docSig   string
	products *pipeline.Products
	mesh     *worker.Result
	job      *worker.Handle

	debounced     func(func())
	debounceAfter time.Duration
	cascade       int

	autoMu    sync.Mutex
	autoTimer *time.Timer
}

// warmTree serializes the whole tree once so later lookups hit the cache.
func warmTree(t *tree.Tree, root *graph.Node) error {
	_, err := t.String(root)
	return err
}

// New returns a session compiling doc, with leaf geometry built by ev.
func New(doc Document, ev csg.Evaluator, opts Options) *Session {
	s := &Session{
		doc:       doc,
		evaluator: ev,
		opts:      opts,
		console:   opts.Console,
		renderer:  opts.Renderer,
		worker:    opts.Worker,
		settings:  opts.Settings,
		metrics:   opts.Metrics,
		parsers:   &Parsers{},
		tree:      tree.New(nil),
		warm:      warmTree,
		events:    make(chan event, 64),
		quit:      make(chan struct{}),
	}
	if s.console == nil {
		s.console = ConsoleFunc(func(string) {})
	}
	if s.renderer == nil {
		s.renderer = nopRenderer{}
	}
	if s.settings == nil {
		s.settings = config.Static(config.Default())
	}
	s.libs = modcache.New(s.parsers.Parse)
	if path := doc.Path(); path != "" {
		s.docSig, _ = fsig.Of(path)
	}
	return s
}

// Post queues an action for the event loop. The returned channel receives
// exactly one value when the action is finished: nil, ErrBusy, or the
// error that failed the cycle.
func (s *Session) Post(a Action) <-chan error {
	reply := make(chan error, 1)
	if !s.post(event{kind: eventRequest, action: a, reply: reply}) {
		reply <- ErrClosed
	}
	return reply
}

func (s *Session) post(ev event) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.quit:
		return false
	}
}

// Run processes events until ctx is done. Auto reload, when enabled in
// the settings, runs only while Run does.
func (s *Session) Run(ctx context.Context) error {
	s.restartAutoReload(s.settings.Settings())
	defer s.stopAutoReload()
	for {
		if err := s.Dispatch(ctx); err != nil {
			return err
		}
	}
}

// Dispatch handles one event, blocking until one arrives or ctx is done.
// A term generation running inside Dispatch stops when ctx is done.
func (s *Session) Dispatch(ctx context.Context) error {
	var done <-chan worker.Completion
	if s.worker != nil {
		done = s.worker.Done()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrClosed
	case ev := <-s.events:
		s.ctx = ctx
		s.handle(ev)
	case c := <-done:
		s.ctx = ctx
		s.complete(c)
	}
	s.ctx = nil
	return nil
}

// Exec posts a and dispatches events until it finishes. It must not be
// used while Run is active.
func (s *Session) Exec(ctx context.Context, a Action) error {
	reply := s.Post(a)
	for {
		select {
		case err := <-reply:
			return err
		default:
		}
		if err := s.Dispatch(ctx); err != nil {
			return err
		}
	}
}

// Cancel asks a running term generation to stop. It is safe to call from
// any goroutine.
func (s *Session) Cancel() {
	s.cancel.Store(true)
}

// Close stops the auto reload timer and makes the loop return ErrClosed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.stopAutoReload()
		close(s.quit)
	})
}

// State is safe to call from any goroutine.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Busy reports whether a cycle is in flight.
func (s *Session) Busy() bool {
	return s.guard.Locked()
}

// The accessors below belong to the loop goroutine.

// Root returns the effective root of the current node tree.
func (s *Session) Root() *graph.Node { return s.tree.Root() }

// Tree returns the serializer over the current node tree.
func (s *Session) Tree() *tree.Tree { return s.tree }

// Products returns the products of the last preview, or nil.
func (s *Session) Products() *pipeline.Products { return s.products }

// Module returns the last successfully parsed document.
func (s *Session) Module() *ast.Module { return s.module }

// Mesh returns the last exact render, or nil.
func (s *Session) Mesh() *worker.Result { return s.mesh }

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	log.Debugf("state: %s", st)
	if s.opts.Trace != nil {
		s.opts.Trace(st)
	}
}

func (s *Session) print(line string) {
	s.console.Print(line)
}

func (s *Session) warn(msgs ...string) {
	for _, m := range msgs {
		s.console.Print("WARNING: " + m)
	}
}

func (s *Session) restartAutoReload(st config.Settings) {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	if s.autoTimer != nil {
		s.autoTimer.Stop()
		s.autoTimer = nil
	}
	if !st.Reload.Auto || s.doc.Path() == "" {
		return
	}
	s.autoTimer = time.AfterFunc(st.Reload.Interval(), func() {
		s.post(event{kind: eventTick})
	})
}

func (s *Session) stopAutoReload() {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	if s.autoTimer != nil {
		s.autoTimer.Stop()
		s.autoTimer = nil
	}
}
