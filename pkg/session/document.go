package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chazu/lathe/pkg/ast"
	"github.com/chazu/lathe/pkg/csg"
	"github.com/chazu/lathe/pkg/engine"
	"github.com/chazu/lathe/pkg/graph"
	"github.com/chazu/lathe/pkg/kernel"
	"github.com/chazu/lathe/pkg/pipeline"
	"github.com/chazu/lathe/pkg/scad"
	"github.com/chazu/lathe/pkg/worker"
)

// Document is the editor buffer being compiled.
type Document interface {
	// Path is the file backing the buffer, or "" for an unsaved buffer.
	Path() string
	Text() string
	// Modified reports unsaved edits.
	Modified() bool
	// Reload replaces the buffer with the file contents and clears the
	// modified flag.
	Reload() error
}

// MemoryDocument is a Document held in memory. It is safe for concurrent
// use so an editor may update it while the session compiles.
type MemoryDocument struct {
	mu       sync.RWMutex
	path     string
	text     string
	modified bool
}

var _ Document = (*MemoryDocument)(nil)

// NewMemoryDocument returns an unmodified buffer with the given contents.
func NewMemoryDocument(path, text string) *MemoryDocument {
	return &MemoryDocument{path: path, text: text}
}

// OpenDocument reads the file at path into a new buffer.
func OpenDocument(path string) (*MemoryDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	d := &MemoryDocument{path: abs}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *MemoryDocument) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

func (d *MemoryDocument) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

func (d *MemoryDocument) Modified() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modified
}

// Edit replaces the buffer contents and marks it modified.
func (d *MemoryDocument) Edit(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.modified = true
}

func (d *MemoryDocument) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.path == "" {
		return fmt.Errorf("document has no file")
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return err
	}
	d.text = string(data)
	d.modified = false
	return nil
}

// Console receives user-facing log lines.
type Console interface {
	Print(line string)
}

// ConsoleFunc adapts a function to Console.
type ConsoleFunc func(line string)

func (f ConsoleFunc) Print(line string) { f(line) }

// Renderer displays the products of a cycle.
type Renderer interface {
	Attach(main, highlight, background *csg.Chain, mode pipeline.RenderMode)
	ShowMesh(m *kernel.Mesh)
	Detach()
}

type nopRenderer struct{}

func (nopRenderer) Attach(_, _, _ *csg.Chain, _ pipeline.RenderMode) {}
func (nopRenderer) ShowMesh(*kernel.Mesh)                            {}
func (nopRenderer) Detach()                                          {}

// GeometryWorker produces exact meshes off the event loop.
type GeometryWorker interface {
	Submit(root *graph.Node, key [32]byte) worker.Handle
	Done() <-chan worker.Completion
	FlushCache()
}

// Parser turns document text into a module.
type Parser interface {
	Parse(text, path string) (*ast.Module, error)
}

// Parsers picks a document parser by file extension. The Lisp engine is
// shared between calls.
type Parsers struct {
	once sync.Once
	lisp *engine.Engine
}

// For returns the parser for path: the Lisp engine for .lisp and .zy
// files, the OpenSCAD parser otherwise.
func (p *Parsers) For(path string) Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".zy":
		p.once.Do(func() { p.lisp = engine.NewEngine() })
		return p.lisp
	default:
		return scad.Parser{}
	}
}

// Parse dispatches on the extension of path.
func (p *Parsers) Parse(text, path string) (*ast.Module, error) {
	return p.For(path).Parse(text, path)
}
