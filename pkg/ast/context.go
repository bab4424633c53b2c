package ast

import (
	"fmt"

	"github.com/chazu/lathe/pkg/graph"
)

// Libraries resolves the modules of used libraries.
type Libraries interface {
	Lookup(path string) *Module
}

// maxCallDepth bounds user module recursion.
const maxCallDepth = 1000

// Context is a lexical scope during instantiation.
type Context struct {
	parent   *Context
	file     *Module // file whose top-level scope this context descends from
	vars     map[string]Value
	modules  map[string]*ModuleDef
	children *childBlock

	inst *instantiation
}

// childBlock is the child block of a user module call, evaluated in the
// caller's context by children().
type childBlock struct {
	body *Scope
	ctx  *Context
}

// instantiation is the state shared by every context of one Instantiate.
type instantiation struct {
	libs     Libraries
	libCtx   map[string]*Context
	warnings []string
	depth    int
}

func (c *Context) warnf(format string, args ...any) {
	c.inst.warnings = append(c.inst.warnings, fmt.Sprintf(format, args...))
}

func (c *Context) child() *Context {
	return &Context{parent: c, file: c.file, inst: c.inst}
}

func (c *Context) set(name string, v Value) {
	if c.vars == nil {
		c.vars = make(map[string]Value)
	}
	c.vars[name] = v
}

func (c *Context) lookup(name string) (Value, bool) {
	for s := c; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// lookupModule finds a module definition visible from c and the context
// it was defined in. Local definitions shadow the file's, which shadow used
// libraries in declaration order.
func (c *Context) lookupModule(name string) (*ModuleDef, *Context) {
	for s := c; s != nil; s = s.parent {
		if def, ok := s.modules[name]; ok {
			return def, s
		}
	}
	if c.file == nil || c.inst.libs == nil {
		return nil, nil
	}
	for _, path := range c.file.Uses {
		lc := c.inst.libraryContext(path)
		if lc == nil {
			continue
		}
		if def, ok := lc.modules[name]; ok {
			return def, lc
		}
	}
	return nil, nil
}

// libraryContext evaluates a used library's top-level assignments once per
// instantiation. Its own top-level instantiations are ignored.
func (in *instantiation) libraryContext(path string) *Context {
	if lc, ok := in.libCtx[path]; ok {
		return lc
	}
	// Mark before evaluating so mutually used libraries terminate.
	in.libCtx[path] = nil
	lib := in.libs.Lookup(path)
	if lib == nil {
		return nil
	}
	lc := &Context{file: lib, inst: in}
	lc.declare(&lib.Scope)
	in.libCtx[path] = lc
	return lc
}

// declare evaluates a scope's assignments and registers its modules.
func (c *Context) declare(s *Scope) {
	for name, def := range s.Modules {
		if c.modules == nil {
			c.modules = make(map[string]*ModuleDef)
		}
		c.modules[name] = def
	}
	for _, a := range s.Assignments {
		c.set(a.Name, a.Expr.Eval(c))
	}
}

// instantiateScope instantiates a block in a fresh child context.
func (c *Context) instantiateScope(s *Scope) []*graph.Node {
	if s.Empty() {
		return nil
	}
	sc := c.child()
	sc.declare(s)
	var nodes []*graph.Node
	for _, inst := range s.Instantiations {
		if n := sc.instantiate(inst); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (c *Context) instantiate(inst *Instantiation) *graph.Node {
	if inst.Modifier.Has(ModDisable) {
		return nil
	}

	var n *graph.Node
	if b, ok := builtins[inst.Name]; ok {
		n = b(c, inst)
	} else if def, defCtx := c.lookupModule(inst.Name); def != nil {
		n = c.call(def, defCtx, inst)
	} else {
		c.warnf("Ignoring unknown module '%s'.", inst.Name)
		return nil
	}
	if n == nil {
		return nil
	}

	if inst.Modifier.Has(ModRoot) {
		n.Tags |= graph.TagRoot
	}
	if inst.Modifier.Has(ModHighlight) {
		n.Tags |= graph.TagHighlight
	}
	if inst.Modifier.Has(ModBackground) {
		n.Tags |= graph.TagBackground
	}
	return n
}

// call instantiates a user module. Parameters are bound in a context whose
// parent is the definition's context; defaults may refer to earlier
// parameters.
func (c *Context) call(def *ModuleDef, defCtx *Context, inst *Instantiation) *graph.Node {
	if c.inst.depth >= maxCallDepth {
		c.warnf("Recursion detected calling module '%s'.", def.Name)
		return nil
	}
	c.inst.depth++
	defer func() { c.inst.depth-- }()

	mc := defCtx.child()
	mc.children = &childBlock{body: &inst.Body, ctx: c}

	bound := c.bindArgs(paramNames(def.Params), inst)
	for _, p := range def.Params {
		if v, ok := bound[p.Name]; ok {
			mc.set(p.Name, v)
		} else if p.Default != nil {
			mc.set(p.Name, p.Default.Eval(mc))
		} else {
			mc.set(p.Name, Undef)
		}
	}

	return graph.Group(def.Name, mc.instantiateScope(&def.Body)...)
}

func paramNames(params []Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// bindArgs evaluates arguments in c. Positional arguments fill params in
// order; named arguments bind by name and may name parameters not listed.
func (c *Context) bindArgs(params []string, inst *Instantiation) map[string]Value {
	out := make(map[string]Value, len(inst.Args))
	pos := 0
	for _, a := range inst.Args {
		v := a.Expr.Eval(c)
		if a.Name != "" {
			out[a.Name] = v
			continue
		}
		if pos < len(params) {
			out[params[pos]] = v
		}
		pos++
	}
	return out
}

// Instantiate builds the node tree for m. The result is a group holding
// every top-level object, with IDs assigned in pre-order from zero. It is
// nil when the document yields no object. Warnings are returned as
// messages without a severity prefix.
func Instantiate(m *Module, libs Libraries) (*graph.Node, []string) {
	in := &instantiation{libs: libs, libCtx: make(map[string]*Context)}
	top := &Context{file: m, inst: in}

	nodes := top.instantiateScope(&m.Scope)
	if len(nodes) == 0 {
		return nil, in.warnings
	}
	root := graph.Group("", nodes...)
	graph.Renumber(root)
	return root, in.warnings
}
