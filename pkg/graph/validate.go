package graph

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks evaluation
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks evaluation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding. NodeID is -1 for
// tree-level findings.
type ValidationError struct {
	NodeID   int
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.NodeID < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %d: %s", e.Severity, e.NodeID, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs the structural checks on the tree rooted at root. An empty
// slice means the tree is well formed. Validate never mutates the tree.
func Validate(root *Node) []ValidationError {
	// Kind checks walk the tree and would not terminate on a cycle.
	if errs := validateOwnership(root); len(errs) > 0 {
		return errs
	}
	return validateKinds(root)
}

// ValidateAll runs the structural and geometric checks and separates errors
// from warnings.
func ValidateAll(root *Node) ValidationResult {
	var result ValidationResult
	all := Validate(root)
	if len(all) == 0 {
		all = validateGeometry(root)
	}
	for _, e := range all {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// validateOwnership checks that every node is reachable through exactly one
// parent edge and that IDs are unique. A node visited twice is either shared
// between parents or part of a cycle; both break exclusive ownership.
func validateOwnership(root *Node) []ValidationError {
	var errs []ValidationError
	if root == nil {
		return errs
	}

	seen := make(map[*Node]bool)
	ids := make(map[int]bool)

	var visit func(n *Node) bool // returns false to stop
	visit = func(n *Node) bool {
		if seen[n] {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "node is owned by more than one parent or is part of a cycle",
				Severity: SeverityError,
			})
			return false
		}
		seen[n] = true

		if ids[n.ID] {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("duplicate node id %d", n.ID),
				Severity: SeverityError,
			})
		}
		ids[n.ID] = true

		for i, c := range n.Children {
			if c == nil {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("child %d is nil", i),
					Severity: SeverityError,
				})
				continue
			}
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(root)

	return errs
}

// validateKinds checks that the payload matches the node kind and that
// primitives are leaves.
func validateKinds(root *Node) []ValidationError {
	var errs []ValidationError

	Inspect(root, func(n *Node) bool {
		var ok bool
		switch n.Kind {
		case KindPrimitive:
			_, ok = n.Data.(PrimitiveData)
			if len(n.Children) > 0 {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("primitive has %d children", len(n.Children)),
					Severity: SeverityError,
				})
			}
		case KindTransform:
			_, ok = n.Data.(TransformData)
		case KindBoolean:
			_, ok = n.Data.(BooleanData)
		case KindGroup:
			_, ok = n.Data.(GroupData)
			ok = ok || n.Data == nil
		}
		if !ok {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("%s node carries %T payload", n.Kind, n.Data),
				Severity: SeverityError,
			})
		}
		return true
	})

	return errs
}
