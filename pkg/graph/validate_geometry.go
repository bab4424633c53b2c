package graph

import "fmt"

// validateGeometry reports degenerate geometry. Primitive dimensions that
// cannot produce a solid are errors; transforms that flatten their children
// and booleans without operands are warnings.
func validateGeometry(root *Node) []ValidationError {
	var errs []ValidationError

	Inspect(root, func(n *Node) bool {
		switch d := n.Data.(type) {
		case PrimitiveData:
			errs = append(errs, validatePrimitive(n.ID, d)...)
		case TransformData:
			if d.Op == OpScale && (d.Vec.X == 0 || d.Vec.Y == 0 || d.Vec.Z == 0) {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("scale %s collapses its children to zero volume", d.Vec),
					Severity: SeverityWarning,
				})
			}
		case BooleanData:
			if len(n.Children) == 0 {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("%s() has no children", d.Op),
					Severity: SeverityWarning,
				})
			}
		}
		return true
	})

	return errs
}

func validatePrimitive(id int, d PrimitiveData) []ValidationError {
	var errs []ValidationError
	positive := func(what string, v float64) {
		if v <= 0 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("%s %s is %s, must be positive", d.Shape, what, FormatNumber(v)),
				Severity: SeverityError,
			})
		}
	}

	switch d.Shape {
	case ShapeCube:
		positive("size X", d.Size.X)
		positive("size Y", d.Size.Y)
		positive("size Z", d.Size.Z)
	case ShapeSphere:
		positive("radius", d.Radius)
	case ShapeCylinder:
		positive("radius", d.Radius)
		positive("height", d.Height)
	}
	return errs
}
