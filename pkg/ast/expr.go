package ast

import "strings"

// Expr is an expression node.
type Expr interface {
	Eval(c *Context) Value
	Position() Pos
	String() string
}

// Literal is a constant value.
type Literal struct {
	Value Value
	Pos   Pos
}

func (e *Literal) Eval(*Context) Value { return e.Value }
func (e *Literal) Position() Pos       { return e.Pos }
func (e *Literal) String() string      { return e.Value.String() }

// Ident is a variable reference.
type Ident struct {
	Name string
	Pos  Pos
}

func (e *Ident) Eval(c *Context) Value {
	if v, ok := c.lookup(e.Name); ok {
		return v
	}
	c.warnf("Ignoring unknown variable '%s'.", e.Name)
	return Undef
}
func (e *Ident) Position() Pos  { return e.Pos }
func (e *Ident) String() string { return e.Name }

// VectorExpr is a vector literal [a, b, ...].
type VectorExpr struct {
	Elems []Expr
	Pos   Pos
}

func (e *VectorExpr) Eval(c *Context) Value {
	out := make(Vector, len(e.Elems))
	for i, el := range e.Elems {
		out[i] = el.Eval(c)
	}
	return out
}
func (e *VectorExpr) Position() Pos { return e.Pos }
func (e *VectorExpr) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Unary is a prefix operator: '-', '+' or '!'.
type Unary struct {
	Op  byte
	X   Expr
	Pos Pos
}

func (e *Unary) Eval(c *Context) Value {
	v := e.X.Eval(c)
	switch e.Op {
	case '!':
		return Bool(!Truthy(v))
	case '+':
		return v
	case '-':
		return negate(v)
	}
	return Undef
}
func (e *Unary) Position() Pos  { return e.Pos }
func (e *Unary) String() string { return string(e.Op) + e.X.String() }

func negate(v Value) Value {
	switch x := v.(type) {
	case Number:
		return -x
	case Vector:
		out := make(Vector, len(x))
		for i, el := range x {
			out[i] = negate(el)
		}
		return out
	}
	return Undef
}

// Binary is an arithmetic operator: '+', '-', '*' or '/'.
type Binary struct {
	Op   byte
	L, R Expr
	Pos  Pos
}

func (e *Binary) Eval(c *Context) Value {
	return arith(e.Op, e.L.Eval(c), e.R.Eval(c))
}
func (e *Binary) Position() Pos { return e.Pos }
func (e *Binary) String() string {
	return "(" + e.L.String() + " " + string(e.Op) + " " + e.R.String() + ")"
}

func arith(op byte, l, r Value) Value {
	ln, lnum := l.(Number)
	rn, rnum := r.(Number)
	lv, lvec := l.(Vector)
	rv, rvec := r.(Vector)

	switch {
	case lnum && rnum:
		switch op {
		case '+':
			return ln + rn
		case '-':
			return ln - rn
		case '*':
			return ln * rn
		case '/':
			return ln / rn
		}
	case lvec && rvec && (op == '+' || op == '-'):
		n := len(lv)
		if len(rv) < n {
			n = len(rv)
		}
		out := make(Vector, n)
		for i := 0; i < n; i++ {
			out[i] = arith(op, lv[i], rv[i])
		}
		return out
	case lvec && rnum && (op == '*' || op == '/'):
		out := make(Vector, len(lv))
		for i, el := range lv {
			out[i] = arith(op, el, r)
		}
		return out
	case lnum && rvec && op == '*':
		out := make(Vector, len(rv))
		for i, el := range rv {
			out[i] = arith(op, l, el)
		}
		return out
	}
	return Undef
}

// NumberLit is a convenience constructor for numeric literals.
func NumberLit(f float64, pos Pos) *Literal {
	return &Literal{Value: Number(f), Pos: pos}
}

// StringLit is a convenience constructor for string literals.
func StringLit(s string, pos Pos) *Literal {
	return &Literal{Value: Str(s), Pos: pos}
}

func formatArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.Name != "" {
			parts[i] = a.Name + " = " + a.Expr.String()
		} else {
			parts[i] = a.Expr.String()
		}
	}
	return strings.Join(parts, ", ")
}
