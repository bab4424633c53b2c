package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/lathe/pkg/ast"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms Lisp document source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: rounded-box -> rounded_box
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a module instantiation built by a shape builtin. Shapes
// passed to another builtin become its children; the rest are top-level.
type sexpShape struct {
	inst     *ast.Instantiation
	consumed bool
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s ...)", s.inst.Name)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a three-component vector.
type sexpVec3 struct {
	vec ast.Vector
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %s %s %s)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// collector records shapes in creation order for one evaluation.
type collector struct {
	shapes []*sexpShape
}

func (c *collector) add(inst *ast.Instantiation) *sexpShape {
	s := &sexpShape{inst: inst}
	c.shapes = append(c.shapes, s)
	return s
}

// topLevel returns every shape that was never used as a child.
func (c *collector) topLevel() []*ast.Instantiation {
	var out []*ast.Instantiation
	for _, s := range c.shapes {
		if !s.consumed {
			out = append(out, s.inst)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	names      []string // keyword names in source order
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if _, dup := result.kw[name]; !dup {
				result.names = append(result.names, name)
			}
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as a true flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toValue converts a Lisp value into a document value. A bare keyword
// flag (SexpNull after a keyword) reads as true.
func toValue(s zygo.Sexp, flag bool) (ast.Value, error) {
	switch v := s.(type) {
	case *zygo.SexpInt, *zygo.SexpFloat:
		f, err := toFloat64(v)
		return ast.Number(f), err
	case *zygo.SexpBool:
		return ast.Bool(v.Val), nil
	case *zygo.SexpStr:
		return ast.Str(v.S), nil
	case *sexpVec3:
		return v.vec, nil
	case *zygo.SexpArray, *zygo.SexpPair:
		items, err := sexpListToSlice(v)
		if err != nil {
			return nil, err
		}
		vec := make(ast.Vector, len(items))
		for i, item := range items {
			if vec[i], err = toValue(item, false); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return vec, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			if flag {
				return ast.Bool(true), nil
			}
			return ast.Undef, nil
		}
	case *sexpShape:
		return nil, fmt.Errorf("shape (%s ...) used as a value", v.inst.Name)
	}
	return nil, fmt.Errorf("unsupported value %T (%s)", s, s.SexpString(nil))
}

func literal(v ast.Value) ast.Expr {
	return &ast.Literal{Value: v}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// shapeModules are the document modules exposed as Lisp functions. Every
// positional shape argument becomes a child; other positional and keyword
// arguments become call arguments, so (cylinder :h 10 :d 4) means
// cylinder(h = 10, d = 4).
var shapeModules = []string{
	"cube", "sphere", "cylinder",
	"translate", "rotate", "scale",
	"union", "difference", "intersection", "group",
}

// modifierFuncs mark a shape the way the !, #, % and * prefixes do.
var modifierFuncs = map[string]ast.Modifier{
	"root":       ast.ModRoot,
	"highlight":  ast.ModHighlight,
	"background": ast.ModBackground,
	"disable":    ast.ModDisable,
}

// registerBuiltins installs the shape and modifier builtins into a zygomys
// environment. Shapes are recorded in c.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, c *collector) {

	// -----------------------------------------------------------------------
	// (cube 10), (translate [0 0 5] (sphere :r 2)), (difference a b c)
	// -----------------------------------------------------------------------
	for _, module := range shapeModules {
		env.AddFunction(module, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			inst := &ast.Instantiation{Name: module}

			for i, arg := range pa.positional {
				if s, ok := arg.(*sexpShape); ok {
					s.consumed = true
					inst.Body.Instantiations = append(inst.Body.Instantiations, s.inst)
					continue
				}
				v, err := toValue(arg, false)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", module, i+1, err)
				}
				inst.Args = append(inst.Args, ast.Arg{Expr: literal(v)})
			}
			for _, kw := range pa.names {
				v, err := toValue(pa.kw[kw], true)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %s: %w", module, kw, err)
				}
				inst.Args = append(inst.Args, ast.Arg{Name: strings.ReplaceAll(kw, "-", "_"), Expr: literal(v)})
			}

			return c.add(inst), nil
		})
	}

	// -----------------------------------------------------------------------
	// (highlight (cube 1)), (root ...), (background ...), (disable ...)
	// -----------------------------------------------------------------------
	for fn, mod := range modifierFuncs {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 shape argument, got %d", fn, len(args))
			}
			s, ok := args[0].(*sexpShape)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: expected shape, got %T", fn, args[0])
			}
			s.inst.Modifier |= mod
			return s, nil
		})
	}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		vec := make(ast.Vector, 3)
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			vec[i] = ast.Number(f)
		}

		return &sexpVec3{vec: vec}, nil
	})
}
