package solver

import (
	"errors"
	"strings"
	"testing"
)

func TestNewModel(t *testing.T) {
	model := NewModel()
	if model.VariableCount() != 0 {
		t.Errorf("VariableCount() = %d, want 0", model.VariableCount())
	}
	if model.ConstraintCount() != 0 {
		t.Errorf("ConstraintCount() = %d, want 0", model.ConstraintCount())
	}
	if model.Config() == nil {
		t.Error("Config() should not be nil")
	}

	config := &SolverConfig{IntBound: 10, RealBound: 10}
	if NewModelWithConfig(config).Config() != config {
		t.Error("Config() should return the provided config")
	}
}

func TestModel_AddConstraint(t *testing.T) {
	model := NewModel()
	x := NewVar("x", KindInt)
	y := NewVar("y", KindReal)

	if err := model.AddConstraint(Gt(Add(Ref(x), Ref(y)), Const(IntValue(0)))); err != nil {
		t.Fatalf("AddConstraint() error = %v", err)
	}
	if model.VariableCount() != 2 {
		t.Errorf("VariableCount() = %d, want 2", model.VariableCount())
	}
	if got, ok := model.Lookup("y"); !ok || got.Kind() != KindReal {
		t.Errorf("Lookup(y) = %v, %v", got, ok)
	}

	// A name keeps the kind it was first declared with.
	err := model.AddConstraint(Gt(Ref(NewVar("x", KindReal)), Const(IntValue(0))))
	if !errors.Is(err, ErrKindConflict) {
		t.Errorf("AddConstraint() with conflicting kind error = %v, want ErrKindConflict", err)
	}

	if err := model.AddConstraint(Add(Ref(x), Ref(x))); !errors.Is(err, ErrNotPredicate) {
		t.Errorf("AddConstraint(non-predicate) error = %v, want ErrNotPredicate", err)
	}

	var te *TypeError
	if err := model.AddConstraint(MustParse("z > 0")); !errors.As(err, &te) {
		t.Errorf("AddConstraint(unbound) error = %v, want *TypeError", err)
	}
	if model.ConstraintCount() != 1 {
		t.Errorf("ConstraintCount() = %d, want 1", model.ConstraintCount())
	}
	if !strings.Contains(model.String(), "x:Int") {
		t.Errorf("String() = %q", model.String())
	}
}

func TestModel_SetDomain(t *testing.T) {
	model := NewModel()
	if err := model.SetDomain("x", NewIntDomain(0, 3)); !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("SetDomain(undeclared) error = %v", err)
	}
	if _, err := model.Declare(NewVar("x", KindInt)); err != nil {
		t.Fatal(err)
	}
	if err := model.SetDomain("x", NewRealDomain(0, 3)); !errors.Is(err, ErrKindConflict) {
		t.Errorf("SetDomain(real for int) error = %v", err)
	}
	if err := model.SetDomain("x", NewIntDomain(3, 0)); err != nil {
		t.Fatal(err)
	}
	if err := model.Validate(); err == nil {
		t.Error("Validate() should reject an empty initial domain")
	}
}
