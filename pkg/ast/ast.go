// Package ast defines the module tree produced by parsing a document and
// instantiates it into a graph.Node tree.
package ast

// Pos is a byte offset into the source text.
type Pos int

// Modifier is the set of prefix modifiers on an instantiation.
type Modifier uint8

const (
	ModRoot       Modifier = 1 << iota // !
	ModHighlight                       // #
	ModBackground                      // %
	ModDisable                         // *
)

// Has reports whether every bit of o is set in m.
func (m Modifier) Has(o Modifier) bool {
	return m&o == o
}

// Module is a parsed document. Included files are already inlined into
// Scope; their signatures are kept so a reload can tell when they change.
// Used libraries contribute module definitions only.
type Module struct {
	Path     string
	Scope    Scope
	Includes []Dependency
	Uses     []string // absolute paths of used libraries
	Warnings []string // non-fatal problems found while parsing
}

// Dependency is a file read while parsing, with its signature at that time.
type Dependency struct {
	Path      string
	Signature string
}

// Scope is a block of assignments, module definitions and instantiations.
type Scope struct {
	Assignments    []*Assignment
	Modules        map[string]*ModuleDef
	Instantiations []*Instantiation
}

// AddModule registers a module definition, replacing any earlier one with
// the same name.
func (s *Scope) AddModule(def *ModuleDef) {
	if s.Modules == nil {
		s.Modules = make(map[string]*ModuleDef)
	}
	s.Modules[def.Name] = def
}

// Empty reports whether the scope contains nothing.
func (s *Scope) Empty() bool {
	return len(s.Assignments) == 0 && len(s.Modules) == 0 && len(s.Instantiations) == 0
}

// Assignment binds Name to the value of Expr in the enclosing scope.
type Assignment struct {
	Name string
	Expr Expr
	Pos  Pos
}

// ModuleDef is a user-defined module.
type ModuleDef struct {
	Name   string
	Params []Param
	Body   Scope
	Pos    Pos
}

// Param is a module parameter with an optional default.
type Param struct {
	Name    string
	Default Expr // nil means undef
}

// Instantiation is a call to a builtin or user module with an optional
// child block.
type Instantiation struct {
	Name     string
	Args     []Arg
	Modifier Modifier
	Body     Scope
	Pos      Pos
}

// Arg is a call argument. Name is empty for positional arguments.
type Arg struct {
	Name string
	Expr Expr
}
