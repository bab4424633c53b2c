// Package scad parses the OpenSCAD subset understood by lathe into an
// ast.Module.
package scad

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/chazu/lathe/pkg/ast"
	"github.com/chazu/lathe/pkg/fsig"
)

var log = commonlog.GetLogger("lathe.scad")

// maxIncludeDepth bounds nested includes, which also stops include cycles.
const maxIncludeDepth = 32

// Parser parses .scad documents. The zero value is ready to use.
type Parser struct{}

// Parse implements the session parser capability.
func (Parser) Parse(text, path string) (*ast.Module, error) {
	return Parse(text, path)
}

// Parse parses text as the document stored at path. Included files are
// read and inlined; used libraries are only recorded. path may be empty for
// unsaved documents, in which case relative includes resolve against the
// working directory.
func Parse(text, path string) (*ast.Module, error) {
	m := &ast.Module{Path: path}
	p := newParser(text, path, m, 0)
	if err := p.parseFile(&m.Scope); err != nil {
		return nil, err
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

type parser struct {
	src    string
	path   string
	toks   []Token
	pos    int
	module *ast.Module
	depth  int // include nesting
}

// bailout unwinds the parser on the first error.
type bailout struct{ err *ast.ParseError }

func newParser(src, path string, m *ast.Module, depth int) *parser {
	return &parser{src: src, path: path, toks: Tokenize(src), module: m, depth: depth}
}

func (p *parser) parseFile(scope *ast.Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()
	for p.cur().Type != TokEOF {
		p.parseStatement(scope)
	}
	return nil
}

func (p *parser) cur() Token {
	return p.toks[p.pos]
}

func (p *parser) peekTok() Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorAt(pos int, format string, args ...any) {
	line, col := ast.LineCol(p.src, ast.Pos(pos))
	panic(bailout{&ast.ParseError{
		Path:    p.path,
		Pos:     ast.Pos(pos),
		Line:    line,
		Col:     col,
		Message: fmt.Sprintf(format, args...),
	}})
}

func (p *parser) unexpected(want string) {
	t := p.cur()
	if t.Type == TokIllegal {
		p.errorAt(t.Pos, "syntax error: %s", t.Value)
	}
	p.errorAt(t.Pos, "syntax error: unexpected %s, expected %s", t, want)
}

func (p *parser) expect(c byte) Token {
	if !p.cur().is(c) {
		p.unexpected("'" + string(c) + "'")
	}
	return p.next()
}

func (p *parser) expectIdent() Token {
	if p.cur().Type != TokIdent {
		p.unexpected("identifier")
	}
	return p.next()
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *parser) parseStatement(scope *ast.Scope) {
	t := p.cur()
	switch {
	case t.is(';'):
		p.next()
	case t.is('{'):
		// A bare block adds its contents to the enclosing scope.
		p.next()
		p.parseBlock(scope)
	case t.isIdent("module"):
		p.parseModuleDef(scope)
	case t.isIdent("include"):
		p.next()
		p.parseInclude(scope)
	case t.isIdent("use"):
		p.next()
		p.parseUse()
	case t.Type == TokIdent && p.peekTok().is('='):
		p.next()
		p.next()
		expr := p.parseExpr()
		p.expect(';')
		scope.Assignments = append(scope.Assignments, &ast.Assignment{Name: t.Value, Expr: expr, Pos: ast.Pos(t.Pos)})
	default:
		scope.Instantiations = append(scope.Instantiations, p.parseInstantiation())
	}
}

// parseBlock parses statements up to the closing brace.
func (p *parser) parseBlock(scope *ast.Scope) {
	for !p.cur().is('}') {
		if p.cur().Type == TokEOF {
			p.unexpected("'}'")
		}
		p.parseStatement(scope)
	}
	p.next()
}

func (p *parser) parseModuleDef(scope *ast.Scope) {
	start := p.next()
	name := p.expectIdent()
	def := &ast.ModuleDef{Name: name.Value, Pos: ast.Pos(start.Pos)}

	p.expect('(')
	for !p.cur().is(')') {
		param := ast.Param{Name: p.expectIdent().Value}
		if p.cur().is('=') {
			p.next()
			param.Default = p.parseExpr()
		}
		def.Params = append(def.Params, param)
		if !p.cur().is(',') {
			break
		}
		p.next()
	}
	p.expect(')')

	p.parseStatement(&def.Body)
	scope.AddModule(def)
}

var modifiers = map[byte]ast.Modifier{
	'!': ast.ModRoot,
	'#': ast.ModHighlight,
	'%': ast.ModBackground,
	'*': ast.ModDisable,
}

func (p *parser) parseInstantiation() *ast.Instantiation {
	var mod ast.Modifier
	start := p.cur().Pos
	for {
		t := p.cur()
		if t.Type != TokPunct {
			break
		}
		m, ok := modifiers[t.Value[0]]
		if !ok {
			break
		}
		mod |= m
		p.next()
	}

	name := p.cur()
	if name.Type != TokIdent {
		p.unexpected("module instantiation")
	}
	p.next()

	inst := &ast.Instantiation{Name: name.Value, Modifier: mod, Pos: ast.Pos(start)}
	p.expect('(')
	inst.Args = p.parseArgs(')')
	p.expect(')')

	switch t := p.cur(); {
	case t.is(';'):
		p.next()
	case t.is('{'):
		p.next()
		p.parseBlock(&inst.Body)
	default:
		inst.Body.Instantiations = append(inst.Body.Instantiations, p.parseInstantiation())
	}
	return inst
}

// parseArgs parses a comma separated argument list up to, not including,
// the closing delimiter.
func (p *parser) parseArgs(closer byte) []ast.Arg {
	var args []ast.Arg
	for !p.cur().is(closer) {
		var a ast.Arg
		if p.cur().Type == TokIdent && p.peekTok().is('=') {
			a.Name = p.next().Value
			p.next()
		}
		a.Expr = p.parseExpr()
		args = append(args, a)
		if !p.cur().is(',') {
			break
		}
		p.next()
	}
	return args
}

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

func (p *parser) resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	base := "."
	if p.path != "" {
		base = filepath.Dir(p.path)
	}
	abs, err := filepath.Abs(filepath.Join(base, rel))
	if err != nil {
		return filepath.Join(base, rel)
	}
	return abs
}

func (p *parser) expectPath() Token {
	if p.cur().Type != TokPath {
		p.unexpected("<file>")
	}
	return p.next()
}

// parseInclude inlines the included file into scope.
func (p *parser) parseInclude(scope *ast.Scope) {
	tok := p.expectPath()
	full := p.resolve(tok.Value)

	sig, _ := fsig.Of(full)
	p.module.Includes = append(p.module.Includes, ast.Dependency{Path: full, Signature: sig})

	if p.depth >= maxIncludeDepth {
		p.errorAt(tok.Pos, "include nesting deeper than %d levels", maxIncludeDepth)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		log.Warningf("include %s: %v", full, err)
		p.module.Warnings = append(p.module.Warnings, fmt.Sprintf("Can't open include file '%s'.", tok.Value))
		return
	}

	sub := newParser(string(data), full, p.module, p.depth+1)
	if err := sub.parseFile(scope); err != nil {
		panic(bailout{err.(*ast.ParseError)})
	}
}

func (p *parser) parseUse() {
	tok := p.expectPath()
	full := p.resolve(tok.Value)
	for _, u := range p.module.Uses {
		if u == full {
			return
		}
	}
	p.module.Uses = append(p.module.Uses, full)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *parser) parseExpr() ast.Expr {
	return p.parseAdditive()
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.cur().is('+') || p.cur().is('-') {
		op := p.next()
		right := p.parseMultiplicative()
		left = &ast.Binary{Op: op.Value[0], L: left, R: right, Pos: ast.Pos(op.Pos)}
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.cur().is('*') || p.cur().is('/') {
		op := p.next()
		right := p.parseUnary()
		left = &ast.Binary{Op: op.Value[0], L: left, R: right, Pos: ast.Pos(op.Pos)}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	if t := p.cur(); t.is('-') || t.is('+') || t.is('!') {
		p.next()
		return &ast.Unary{Op: t.Value[0], X: p.parseUnary(), Pos: ast.Pos(t.Pos)}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Type {
	case TokNumber:
		p.next()
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			p.errorAt(t.Pos, "invalid number %q", t.Value)
		}
		return ast.NumberLit(f, ast.Pos(t.Pos))
	case TokString:
		p.next()
		return ast.StringLit(t.Value, ast.Pos(t.Pos))
	case TokIdent:
		p.next()
		switch t.Value {
		case "true":
			return &ast.Literal{Value: ast.Bool(true), Pos: ast.Pos(t.Pos)}
		case "false":
			return &ast.Literal{Value: ast.Bool(false), Pos: ast.Pos(t.Pos)}
		case "undef":
			return &ast.Literal{Value: ast.Undef, Pos: ast.Pos(t.Pos)}
		}
		return &ast.Ident{Name: t.Value, Pos: ast.Pos(t.Pos)}
	case TokPunct:
		switch {
		case t.is('('):
			p.next()
			e := p.parseExpr()
			p.expect(')')
			return e
		case t.is('['):
			p.next()
			v := &ast.VectorExpr{Pos: ast.Pos(t.Pos)}
			for !p.cur().is(']') {
				v.Elems = append(v.Elems, p.parseExpr())
				if !p.cur().is(',') {
					break
				}
				p.next()
			}
			p.expect(']')
			return v
		}
	}
	p.unexpected("expression")
	return nil
}
