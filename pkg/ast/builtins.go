package ast

import "github.com/chazu/lathe/pkg/graph"

type builtinFunc func(c *Context, inst *Instantiation) *graph.Node

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"cube":         builtinCube,
		"sphere":       builtinSphere,
		"cylinder":     builtinCylinder,
		"translate":    transformBuiltin(graph.OpTranslate),
		"rotate":       transformBuiltin(graph.OpRotate),
		"scale":        transformBuiltin(graph.OpScale),
		"union":        booleanBuiltin(graph.OpUnion),
		"difference":   booleanBuiltin(graph.OpDifference),
		"intersection": booleanBuiltin(graph.OpIntersection),
		"group":        builtinGroup,
		"children":     builtinChildren,
	}
}

// IsBuiltin reports whether name is a builtin module.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func builtinCube(c *Context, inst *Instantiation) *graph.Node {
	args := c.bindArgs([]string{"size", "center"}, inst)

	size := graph.Vec3{X: 1, Y: 1, Z: 1}
	if v, ok := args["size"]; ok {
		if n, ok := AsNumber(v); ok {
			size = graph.Vec3{X: n, Y: n, Z: n}
		} else if vec, ok := AsVec3(v, 1); ok {
			size = vec
		}
	}
	return graph.Cube(size, Truthy(args["center"]))
}

func builtinSphere(c *Context, inst *Instantiation) *graph.Node {
	args := c.bindArgs([]string{"r"}, inst)
	return graph.Sphere(radius(args, "r", "d", 1))
}

func builtinCylinder(c *Context, inst *Instantiation) *graph.Node {
	args := c.bindArgs([]string{"h", "r1", "r2", "center"}, inst)

	h := 1.0
	if n, ok := AsNumber(args["h"]); ok {
		h = n
	}
	r := radius(args, "r1", "d1", 1)
	r = radius(args, "r", "d", r)
	if r2, ok := AsNumber(args["r2"]); ok && r2 != r {
		c.warnf("cylinder(): cones are not supported, using r = %s.", graph.FormatNumber(r))
	}
	return graph.Cylinder(h, r, Truthy(args["center"]))
}

// radius reads a radius from rname, or half the diameter from dname.
func radius(args map[string]Value, rname, dname string, def float64) float64 {
	if d, ok := AsNumber(args[dname]); ok {
		return d / 2
	}
	if r, ok := AsNumber(args[rname]); ok {
		return r
	}
	return def
}

func transformBuiltin(op graph.TransformOp) builtinFunc {
	return func(c *Context, inst *Instantiation) *graph.Node {
		params := []string{"v"}
		if op == graph.OpRotate {
			params = []string{"a", "v"}
		}
		args := c.bindArgs(params, inst)

		var vec graph.Vec3
		switch op {
		case graph.OpTranslate:
			vec, _ = AsVec3(args["v"], 0)
		case graph.OpScale:
			vec = graph.Vec3{X: 1, Y: 1, Z: 1}
			if n, ok := AsNumber(args["v"]); ok {
				vec = graph.Vec3{X: n, Y: n, Z: n}
			} else if v, ok := AsVec3(args["v"], 1); ok {
				vec = v
			}
		case graph.OpRotate:
			if n, ok := AsNumber(args["a"]); ok {
				vec = rotateAbout(c, n, args["v"])
			} else {
				vec, _ = AsVec3(args["a"], 0)
			}
		}
		return graph.Transform(op, vec, c.instantiateScope(&inst.Body)...)
	}
}

// rotateAbout converts a scalar angle to Euler angles. Without an axis the
// rotation is about Z; only the coordinate axes are accepted.
func rotateAbout(c *Context, a float64, axis Value) graph.Vec3 {
	if IsUndef(axis) {
		return graph.Vec3{Z: a}
	}
	v, ok := AsVec3(axis, 0)
	switch {
	case ok && v == (graph.Vec3{X: 1}):
		return graph.Vec3{X: a}
	case ok && v == (graph.Vec3{Y: 1}):
		return graph.Vec3{Y: a}
	case ok && v == (graph.Vec3{Z: 1}):
		return graph.Vec3{Z: a}
	}
	c.warnf("rotate(): axis %s is not a coordinate axis, rotating about Z.", axis)
	return graph.Vec3{Z: a}
}

func booleanBuiltin(op graph.BooleanOp) builtinFunc {
	return func(c *Context, inst *Instantiation) *graph.Node {
		return graph.Boolean(op, c.instantiateScope(&inst.Body)...)
	}
}

func builtinGroup(c *Context, inst *Instantiation) *graph.Node {
	return graph.Group("group", c.instantiateScope(&inst.Body)...)
}

// builtinChildren instantiates the child block of the innermost user module
// call, in the caller's context. An index selects a single child.
func builtinChildren(c *Context, inst *Instantiation) *graph.Node {
	var cb *childBlock
	for s := c; s != nil && cb == nil; s = s.parent {
		cb = s.children
	}
	if cb == nil {
		c.warnf("children() called outside of a module.")
		return nil
	}

	args := c.bindArgs([]string{"index"}, inst)
	nodes := cb.ctx.instantiateScope(cb.body)
	if idx, ok := AsNumber(args["index"]); ok {
		i := int(idx)
		if i < 0 || i >= len(nodes) {
			c.warnf("children(%d) out of range.", i)
			return nil
		}
		return nodes[i]
	}
	return graph.Group("children", nodes...)
}
