package graph

import (
	"strings"
	"testing"
)

// hasFinding returns true if errs contains a finding of the given severity
// whose message contains substr.
func hasFinding(errs []ValidationError, sev ValidationSeverity, substr string) bool {
	for _, e := range errs {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateWellFormed(t *testing.T) {
	if errs := Validate(sampleTree()); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if errs := Validate(nil); len(errs) != 0 {
		t.Errorf("nil tree should validate, got %v", errs)
	}
}

func TestValidateSharedChild(t *testing.T) {
	shared := Cube(Vec3{1, 1, 1}, false)
	root := Group("", shared, Transform(OpTranslate, Vec3{1, 0, 0}, shared))
	Renumber(root)

	errs := Validate(root)
	if !hasFinding(errs, SeverityError, "more than one parent") {
		t.Errorf("expected ownership error, got %v", errs)
	}
}

func TestValidateCycle(t *testing.T) {
	g := Group("")
	g.Children = []*Node{Transform(OpScale, Vec3{1, 1, 1}, g)}

	errs := Validate(g)
	if !hasFinding(errs, SeverityError, "cycle") {
		t.Errorf("expected cycle error, got %v", errs)
	}
}

func TestValidateDuplicateIDs(t *testing.T) {
	root := Group("", Cube(Vec3{1, 1, 1}, false), Sphere(1))
	// All IDs are zero without Renumber.
	errs := Validate(root)
	if !hasFinding(errs, SeverityError, "duplicate node id 0") {
		t.Errorf("expected duplicate id error, got %v", errs)
	}
}

func TestValidateKinds(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want string
	}{
		{"primitive with children", &Node{ID: 1, Kind: KindPrimitive, Data: PrimitiveData{Shape: ShapeSphere, Radius: 1},
			Children: []*Node{{ID: 2, Kind: KindGroup}}}, "primitive has 1 children"},
		{"payload mismatch", &Node{Kind: KindBoolean, Data: GroupData{}}, "boolean node carries graph.GroupData payload"},
		{"nil child", &Node{Kind: KindGroup, Children: []*Node{nil}}, "child 0 is nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.node)
			if !hasFinding(errs, SeverityError, tt.want) {
				t.Errorf("expected %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{NodeID: 3, Message: "bad", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] node 3: bad" {
		t.Errorf("Error() = %q", got)
	}
	e = ValidationError{NodeID: -1, Message: "bad", Severity: SeverityError}
	if got := e.Error(); got != "[error] bad" {
		t.Errorf("Error() = %q", got)
	}
}
