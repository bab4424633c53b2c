package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/lathe/pkg/ast"
	"github.com/chazu/lathe/pkg/config"
	"github.com/chazu/lathe/pkg/csg"
	"github.com/chazu/lathe/pkg/kernel"
	"github.com/chazu/lathe/pkg/kernel/backend"
	"github.com/chazu/lathe/pkg/pipeline"
	"github.com/chazu/lathe/pkg/session"
	"github.com/chazu/lathe/pkg/tessellate"
	"github.com/chazu/lathe/pkg/worker"
)

// meshColor is the color of exact renders in the viewer.
const meshColor = "#4A90D9"

// untitled names the buffer before a file is opened. Its extension picks
// the OpenSCAD parser.
const untitled = "untitled.scad"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    atomic.Pointer[context.Context]
	kernel kernel.Kernel
	worker *worker.Worker
	// live is the attached session. Cancel reads it without a.mu, which a
	// running binding holds.
	live atomic.Pointer[session.Session]

	mu   sync.Mutex
	doc  *session.MemoryDocument
	sess *session.Session
	stop context.CancelFunc
	view *view
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// ChainData is the preview sent to the frontend: one record per chain.
type ChainData struct {
	Main       *csg.ChainRecord `json:"main"`
	Highlight  *csg.ChainRecord `json:"highlight"`
	Background *csg.ChainRecord `json:"background"`
	Mode       string           `json:"mode"`
}

// EvalErrorData is a JSON-serializable compile error for the frontend.
type EvalErrorData struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Chains   *ChainData      `json:"chains"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Console  []string        `json:"console"`
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
		Console:  []string{},
	}
}

// NewApp creates a new App with the default kernel and an untitled buffer.
func NewApp() *App {
	return newApp(config.Default())
}

func newApp(settings config.Settings) *App {
	k, err := backend.Open(settings.Worker)
	if err != nil {
		log.Fatalf("opening geometry kernel: %v", err)
	}
	w, err := worker.New(k, worker.Options{CacheSize: settings.Worker.CacheSize})
	if err != nil {
		log.Fatalf("starting geometry worker: %v", err)
	}
	a := &App{kernel: k, worker: w}
	a.attach(session.NewMemoryDocument(untitled, ""), config.Static(settings))
	return a
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx.Store(&ctx)
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detach()
	a.worker.Stop()
}

// attach starts a session for doc. The caller holds a.mu or owns a.
func (a *App) attach(doc *session.MemoryDocument, settings config.Source) {
	a.view = &view{app: a}
	a.doc = doc
	a.sess = session.New(doc, tessellate.Evaluator{Kernel: a.kernel}, session.Options{
		Console:       a.view,
		Renderer:      a.view,
		Worker:        a.worker,
		Settings:      settings,
		ConfirmReload: func() bool { return false },
	})
	a.live.Store(a.sess)
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	go func() {
		if err := a.sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, session.ErrClosed) {
			log.Printf("session loop: %v", err)
		}
	}()
}

func (a *App) detach() {
	if a.stop != nil {
		a.stop()
	}
	if a.sess != nil {
		a.sess.Close()
	}
}

// Cancel stops the term generation of the running preview. It does not
// take a.mu, so the frontend can call it while a binding is in progress.
func (a *App) Cancel() {
	if s := a.live.Load(); s != nil {
		s.Cancel()
	}
}

// Open loads a document from disk and returns its text. Settings come from
// the nearest lathe.toml above the file.
func (a *App) Open(path string) (string, error) {
	doc, err := session.OpenDocument(path)
	if err != nil {
		return "", err
	}
	var settings config.Source = config.Static(config.Default())
	if found, err := config.Find(filepath.Dir(doc.Path())); err != nil {
		log.Printf("looking up settings: %v", err)
	} else if found != "" {
		settings = config.NewFileSource(found)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.detach()
	a.attach(doc, settings)
	return doc.Text(), nil
}

// Evaluate replaces the buffer with source, previews it and renders the
// exact mesh. This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.doc.Edit(source)
	return a.run(session.ActionRenderPreview, session.ActionRenderExact)
}

// Preview replaces the buffer with source and previews it.
func (a *App) Preview(source string) EvalResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.doc.Edit(source)
	return a.run(session.ActionRenderPreview)
}

// Render previews the current buffer.
func (a *App) Render() EvalResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run(session.ActionRenderPreview)
}

// RenderExact renders the exact mesh of the current buffer.
func (a *App) RenderExact() EvalResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run(session.ActionRenderExact)
}

// Reload previews the buffer only if it or its dependencies changed.
func (a *App) Reload() EvalResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run(session.ActionReloadPreview)
}

// run posts actions in order, stopping at the first failure.
func (a *App) run(actions ...session.Action) EvalResult {
	result := newResult()
	a.view.begin()
	for _, act := range actions {
		if err := <-a.sess.Post(act); err != nil {
			result.Errors = append(result.Errors, a.errorData(err))
			break
		}
	}
	lines, chains, mesh := a.view.end()

	result.Console = append(result.Console, lines...)
	for _, l := range lines {
		if msg, ok := strings.CutPrefix(l, "WARNING: "); ok {
			result.Warnings = append(result.Warnings, EvalErrorData{Message: msg})
		}
	}
	result.Chains = chains
	if mesh != nil {
		result.Meshes = append(result.Meshes, *mesh)
	}
	return result
}

func (a *App) errorData(err error) EvalErrorData {
	d := EvalErrorData{Message: err.Error()}
	var ce *pipeline.CompileError
	if !errors.As(err, &ce) || ce.Pos < 0 {
		return d
	}
	// Offsets in included files cannot be mapped onto the buffer.
	if ce.Path != "" && ce.Path != a.doc.Path() {
		d.File = ce.Path
		return d
	}
	d.Line, d.Col = ast.LineCol(a.doc.Text(), ast.Pos(ce.Pos))
	return d
}

// view is the session's console and renderer. It records what one binding
// call produced and forwards everything to the frontend as events.
type view struct {
	app *App

	mu     sync.Mutex
	lines  []string
	chains *ChainData
	mesh   *MeshData
	digest [32]byte
}

var (
	_ session.Console  = (*view)(nil)
	_ session.Renderer = (*view)(nil)
)

func (v *view) begin() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines, v.chains, v.mesh = nil, nil, nil
}

func (v *view) end() ([]string, *ChainData, *MeshData) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lines, v.chains, v.mesh
}

func (v *view) emit(name string, data any) {
	if ctx := v.app.ctx.Load(); ctx != nil {
		runtime.EventsEmit(*ctx, name, data)
	}
}

func (v *view) Print(line string) {
	v.mu.Lock()
	v.lines = append(v.lines, line)
	v.mu.Unlock()
	v.emit("console", line)
}

func (v *view) Attach(main, highlight, background *csg.Chain, mode pipeline.RenderMode) {
	data := &ChainData{
		Main:       main.Record(),
		Highlight:  highlight.Record(),
		Background: background.Record(),
		Mode:       mode.String(),
	}
	h := sha256.New()
	for _, c := range []*csg.Chain{main, highlight, background} {
		d, err := c.Digest()
		if err != nil {
			log.Printf("encoding chains: %v", err)
			return
		}
		h.Write(d[:])
	}
	h.Write([]byte(data.Mode))
	var digest [32]byte
	h.Sum(digest[:0])

	v.mu.Lock()
	v.chains = data
	unchanged := digest == v.digest
	v.digest = digest
	v.mu.Unlock()
	// The frontend keeps the buffers of the last chains it was sent.
	if unchanged {
		v.emit("reattach", nil)
		return
	}
	v.emit("chains", data)
}

func (v *view) ShowMesh(m *kernel.Mesh) {
	data := &MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		PartName: m.Label,
		Color:    meshColor,
	}
	v.mu.Lock()
	v.mesh = data
	v.mu.Unlock()
	v.emit("mesh", data)
}

func (v *view) Detach() {
	v.emit("detach", nil)
}
