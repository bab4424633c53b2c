package graph

import "fmt"

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// Shape distinguishes between primitive solids.
type Shape int

const (
	ShapeCube Shape = iota
	ShapeSphere
	ShapeCylinder
)

func (s Shape) String() string {
	switch s {
	case ShapeCube:
		return "cube"
	case ShapeSphere:
		return "sphere"
	case ShapeCylinder:
		return "cylinder"
	default:
		return "unknown"
	}
}

// PrimitiveData describes a leaf solid. Size is used by cubes, Radius by
// spheres and cylinders, Height by cylinders.
type PrimitiveData struct {
	Shape  Shape   `json:"shape"`
	Size   Vec3    `json:"size,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Height float64 `json:"height,omitempty"`
	Center bool    `json:"center,omitempty"`
}

func (PrimitiveData) nodeData() {}

func (d PrimitiveData) header() string {
	switch d.Shape {
	case ShapeCube:
		return fmt.Sprintf("cube(size = %s, center = %t)", d.Size, d.Center)
	case ShapeSphere:
		return fmt.Sprintf("sphere(r = %s)", FormatNumber(d.Radius))
	case ShapeCylinder:
		return fmt.Sprintf("cylinder(h = %s, r = %s, center = %t)",
			FormatNumber(d.Height), FormatNumber(d.Radius), d.Center)
	default:
		return "primitive()"
	}
}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformOp enumerates the affine operations a transform node applies.
type TransformOp int

const (
	OpTranslate TransformOp = iota
	OpRotate                // Euler angles in degrees, applied X then Y then Z
	OpScale
)

func (o TransformOp) String() string {
	switch o {
	case OpTranslate:
		return "translate"
	case OpRotate:
		return "rotate"
	case OpScale:
		return "scale"
	default:
		return "unknown"
	}
}

// TransformData is a single affine operation applied to the children.
type TransformData struct {
	Op  TransformOp `json:"op"`
	Vec Vec3        `json:"vec"`
}

func (TransformData) nodeData() {}

func (d TransformData) header() string {
	return fmt.Sprintf("%s(%s)", d.Op, d.Vec)
}

// Matrix returns the 4x4 matrix of the operation.
func (d TransformData) Matrix() Mat4 {
	switch d.Op {
	case OpTranslate:
		return TranslateMatrix(d.Vec)
	case OpRotate:
		return RotateMatrix(d.Vec)
	case OpScale:
		return ScaleMatrix(d.Vec)
	default:
		return Identity()
	}
}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanOp enumerates CSG operations.
type BooleanOp int

const (
	OpUnion BooleanOp = iota
	OpDifference
	OpIntersection
)

func (o BooleanOp) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// BooleanData combines the children with a CSG operation. Difference
// subtracts every child after the first from the first.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

func (d BooleanData) header() string {
	return d.Op.String() + "()"
}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData is an implicit union. Module records the user module or builtin
// that produced it; it is informational and not part of the header, so
// structurally equal groups serialize identically.
type GroupData struct {
	Module string `json:"module,omitempty"`
}

func (GroupData) nodeData() {}

func (GroupData) header() string {
	return "group()"
}
