package ast

import (
	"strconv"
	"strings"

	"github.com/chazu/lathe/pkg/graph"
)

// Value is the result of evaluating an expression.
type Value interface {
	String() string
}

// Number is a numeric value.
type Number float64

func (n Number) String() string { return graph.FormatNumber(float64(n)) }

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Str is a string value.
type Str string

func (s Str) String() string { return strconv.Quote(string(s)) }

// Vector is an ordered list of values.
type Vector []Value

func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type undef struct{}

func (undef) String() string { return "undef" }

// Undef is the undefined value.
var Undef Value = undef{}

// IsUndef reports whether v is undefined.
func IsUndef(v Value) bool {
	_, ok := v.(undef)
	return v == nil || ok
}

// Truthy follows the document language's notion of truth.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case Number:
		return x != 0
	case Str:
		return x != ""
	case Vector:
		return len(x) > 0
	default:
		return false
	}
}

// AsNumber returns v as a float.
func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// AsVec3 returns a 3-vector from a vector of numbers. Missing components
// are filled from fill.
func AsVec3(v Value, fill float64) (graph.Vec3, bool) {
	vec, ok := v.(Vector)
	if !ok || len(vec) == 0 {
		return graph.Vec3{}, false
	}
	c := [3]float64{fill, fill, fill}
	for i := 0; i < 3 && i < len(vec); i++ {
		n, ok := AsNumber(vec[i])
		if !ok {
			return graph.Vec3{}, false
		}
		c[i] = n
	}
	return graph.Vec3{X: c[0], Y: c[1], Z: c[2]}, true
}
