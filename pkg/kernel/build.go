package kernel

import (
	"errors"
	"fmt"

	"github.com/chazu/lathe/pkg/graph"
)

// Segments is the circular resolution used for spheres and cylinders.
const Segments = 32

// ErrInvalidPrimitive is returned for primitives a kernel cannot build,
// such as a cube with a zero side.
var ErrInvalidPrimitive = errors.New("kernel: invalid primitive")

// Primitive builds the solid described by d. Non-centered cubes sit on
// the positive octant and non-centered cylinders start at z = 0.
func Primitive(k Kernel, d graph.PrimitiveData) (Solid, error) {
	switch d.Shape {
	case graph.ShapeCube:
		if d.Size.X <= 0 || d.Size.Y <= 0 || d.Size.Z <= 0 {
			return nil, fmt.Errorf("%w: cube size %s", ErrInvalidPrimitive, d.Size)
		}
		s := k.Box(d.Size.X, d.Size.Y, d.Size.Z)
		if !d.Center {
			s = k.Translate(s, d.Size.X/2, d.Size.Y/2, d.Size.Z/2)
		}
		return s, nil
	case graph.ShapeSphere:
		if d.Radius <= 0 {
			return nil, fmt.Errorf("%w: sphere radius %s", ErrInvalidPrimitive, graph.FormatNumber(d.Radius))
		}
		return k.Sphere(d.Radius, Segments), nil
	case graph.ShapeCylinder:
		if d.Height <= 0 || d.Radius <= 0 {
			return nil, fmt.Errorf("%w: cylinder h = %s, r = %s", ErrInvalidPrimitive,
				graph.FormatNumber(d.Height), graph.FormatNumber(d.Radius))
		}
		s := k.Cylinder(d.Height, d.Radius, Segments)
		if !d.Center {
			s = k.Translate(s, 0, 0, d.Height/2)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown shape %v", ErrInvalidPrimitive, d.Shape)
	}
}

// Apply applies a single transform operation to s.
func Apply(k Kernel, s Solid, op graph.TransformData) Solid {
	v := op.Vec
	switch op.Op {
	case graph.OpTranslate:
		if v.IsZero() {
			return s
		}
		return k.Translate(s, v.X, v.Y, v.Z)
	case graph.OpRotate:
		if v.IsZero() {
			return s
		}
		return k.Rotate(s, v.X, v.Y, v.Z)
	case graph.OpScale:
		if v.X == 1 && v.Y == 1 && v.Z == 1 {
			return s
		}
		return k.Scale(s, v.X, v.Y, v.Z)
	default:
		return s
	}
}

// Place applies a placement to s. The placement lists operations
// outermost first, so they are applied in reverse.
func Place(k Kernel, s Solid, p graph.Placement) Solid {
	for i := len(p) - 1; i >= 0; i-- {
		s = Apply(k, s, p[i])
	}
	return s
}
