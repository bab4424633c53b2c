package graph

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vec3 is a 3D vector in model units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// String formats the vector the way the document language writes it.
func (v Vec3) String() string {
	return fmt.Sprintf("[%s, %s, %s]", FormatNumber(v.X), FormatNumber(v.Y), FormatNumber(v.Z))
}

// FormatNumber renders a float in its shortest exact form. Negative zero
// prints as 0 so that canonical strings do not depend on sign of zero.
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ---------------------------------------------------------------------------
// Matrices
// ---------------------------------------------------------------------------

// Mat4 is a row-major 4x4 affine matrix acting on column vectors.
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// TranslateMatrix returns a translation by v.
func TranslateMatrix(v Vec3) Mat4 {
	m := Identity()
	m[3], m[7], m[11] = v.X, v.Y, v.Z
	return m
}

// ScaleMatrix returns a non-uniform scale by v.
func ScaleMatrix(v Vec3) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = v.X, v.Y, v.Z
	return m
}

// RotateMatrix returns the rotation for Euler angles in degrees, applied
// about X first, then Y, then Z.
func RotateMatrix(deg Vec3) Mat4 {
	rad := func(d float64) (float64, float64) {
		r := d * math.Pi / 180
		return math.Sin(r), math.Cos(r)
	}
	sx, cx := rad(deg.X)
	sy, cy := rad(deg.Y)
	sz, cz := rad(deg.Z)

	rx := Mat4{1, 0, 0, 0, 0, cx, -sx, 0, 0, sx, cx, 0, 0, 0, 0, 1}
	ry := Mat4{cy, 0, sy, 0, 0, 1, 0, 0, -sy, 0, cy, 0, 0, 0, 0, 1}
	rz := Mat4{cz, -sz, 0, 0, sz, cz, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	return rz.Mul(ry).Mul(rx)
}

// Mul returns m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i*4+k] * o[k*4+j]
			}
			r[i*4+j] = sum
		}
	}
	return r
}

// Apply transforms the point p.
func (m Mat4) Apply(p Vec3) Vec3 {
	return Vec3{
		m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// IsIdentity reports whether m is the identity matrix.
func (m Mat4) IsIdentity() bool {
	return m == Identity()
}

// String renders the matrix as nested rows.
func (m Mat4) String() string {
	rows := make([]string, 4)
	for i := 0; i < 4; i++ {
		rows[i] = fmt.Sprintf("[%s, %s, %s, %s]",
			FormatNumber(m[i*4]), FormatNumber(m[i*4+1]),
			FormatNumber(m[i*4+2]), FormatNumber(m[i*4+3]))
	}
	return "[" + strings.Join(rows, ", ") + "]"
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

// Placement is the cumulative transform of a leaf: the transform operations
// of its ancestors, outermost first. Kernels that cannot take an arbitrary
// matrix replay the operations; everything else uses Matrix.
type Placement []TransformData

// Push returns a new placement with op appended as the innermost transform.
// The receiver is never modified, so placements can be shared between
// sibling subtrees.
func (p Placement) Push(op TransformData) Placement {
	out := make(Placement, len(p)+1)
	copy(out, p)
	out[len(p)] = op
	return out
}

// Matrix returns the product of all operations.
func (p Placement) Matrix() Mat4 {
	m := Identity()
	for _, op := range p {
		m = m.Mul(op.Matrix())
	}
	return m
}
