package solver

import (
	"context"
	"errors"
	"testing"
)

func solveLines(t *testing.T, vars []Var, lines ...string) (*Result, error) {
	t.Helper()
	return solveLinesWithConfig(t, nil, vars, lines...)
}

func solveLinesWithConfig(t *testing.T, cfg *SolverConfig, vars []Var, lines ...string) (*Result, error) {
	t.Helper()
	model := NewModelWithConfig(cfg)
	for _, l := range lines {
		if err := model.AddConstraint(mustBind(t, l, vars...)); err != nil {
			t.Fatalf("AddConstraint(%q) error = %v", l, err)
		}
	}
	return NewSolver(model).Solve(context.Background())
}

func TestSolve_Simple(t *testing.T) {
	x := NewVar("x", KindInt)
	res, err := solveLines(t, []Var{x}, "x > 0", "x < 10")
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if res.Status != StatusSat {
		t.Fatalf("Status = %v, want sat", res.Status)
	}
	// The default value order prefers values nearest zero.
	if got := res.Assignment["x"].Int(); got != 1 {
		t.Errorf("x = %d, want 1", got)
	}
}

func TestSolve_LinearPropagation(t *testing.T) {
	vars := []Var{NewVar("x", KindInt), NewVar("y", KindInt)}
	res, err := solveLines(t, vars, "x + y == 10", "x >= 3", "y >= 4")
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if got := res.Assignment.String(); got != "x=3 y=7" {
		t.Errorf("Assignment = %s, want x=3 y=7", got)
	}
}

func TestSolve_Unsat(t *testing.T) {
	x := NewVar("x", KindInt)
	tests := [][]string{
		{"x > 5", "x < 3"},
		{"x * x == 2"},
		{"x % 4 == 5"},
	}
	for _, lines := range tests {
		res, err := solveLines(t, []Var{x}, lines...)
		if err != nil {
			t.Fatalf("Solve(%v) error = %v", lines, err)
		}
		if res.Status != StatusUnsat {
			t.Errorf("Solve(%v) status = %v (%s), want unsat", lines, res.Status, res.Assignment)
		}
	}
}

func TestSolve_NonLinear(t *testing.T) {
	vars := []Var{NewVar("x", KindInt), NewVar("y", KindInt)}
	lines := []string{"x * y == 12", "x > 2", "y > 2", "x <= y"}
	res, err := solveLines(t, vars, lines...)
	if err != nil || res.Status != StatusSat {
		t.Fatalf("Solve() = %v, %v", res, err)
	}
	for _, l := range lines {
		if !Holds(mustBind(t, l, vars...), res.Assignment) {
			t.Errorf("%s violated by %s", l, res.Assignment)
		}
	}
}

func TestSolve_Reals(t *testing.T) {
	x := NewVar("x", KindReal)
	lines := []string{"x > 0.5", "x < 1"}
	res, err := solveLines(t, []Var{x}, lines...)
	if err != nil || res.Status != StatusSat {
		t.Fatalf("Solve() = %v, %v", res, err)
	}
	for _, l := range lines {
		if !Holds(mustBind(t, l, x), res.Assignment) {
			t.Errorf("%s violated by %s", l, res.Assignment)
		}
	}
}

func TestSolve_Strings(t *testing.T) {
	s, u := NewVar("s", KindString), NewVar("t", KindString)

	res, err := solveLines(t, []Var{s}, `s == "hello"`)
	if err != nil || res.Status != StatusSat {
		t.Fatalf("Solve() = %v, %v", res, err)
	}
	if got := res.Assignment["s"].Text(); got != "hello" {
		t.Errorf("s = %q, want hello", got)
	}

	res, err = solveLines(t, []Var{s, u}, `s != "a"`, "t == s")
	if err != nil || res.Status != StatusSat {
		t.Fatalf("Solve() = %v, %v", res, err)
	}
	if res.Assignment["s"].Text() == "a" || res.Assignment["s"].Text() != res.Assignment["t"].Text() {
		t.Errorf("Assignment = %s", res.Assignment)
	}

	res, err = solveLines(t, []Var{s}, `s == "a"`, `s == "b"`)
	if err != nil || res.Status != StatusUnsat {
		t.Errorf("conflicting text equalities: %v, %v", res.Status, err)
	}
}

func TestSolve_Disjunction(t *testing.T) {
	x := NewVar("x", KindInt)
	lines := []string{"x >= 0", "x <= 10", "Abs(x - 5) >= 4", "x != 0", "x != 1"}
	res, err := solveLines(t, []Var{x}, lines...)
	if err != nil || res.Status != StatusSat {
		t.Fatalf("Solve() = %v, %v", res, err)
	}
	if got := res.Assignment["x"].Int(); got != 9 && got != 10 {
		t.Errorf("x = %d, want 9 or 10", got)
	}
}

func TestSolve_NodeLimit(t *testing.T) {
	x := NewVar("x", KindInt)
	model := NewModel()
	if err := model.AddConstraint(mustBind(t, "x * x == 2", x)); err != nil {
		t.Fatal(err)
	}
	res, err := NewSolver(model).Solve(context.Background(), WithNodeLimit(3))
	if !errors.Is(err, ErrSearchLimitReached) {
		t.Errorf("Solve() error = %v, want ErrSearchLimitReached", err)
	}
	if res.Status != StatusUnknown {
		t.Errorf("Status = %v, want unknown", res.Status)
	}
}

func TestSolve_Cancelled(t *testing.T) {
	x := NewVar("x", KindInt)
	model := NewModel()
	if err := model.AddConstraint(mustBind(t, "x > 3", x)); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewSolver(model).Solve(ctx)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrSearchLimitReached) {
		t.Errorf("Solve() error = %v, want cancellation", err)
	}
	if res.Status != StatusUnknown {
		t.Errorf("Status = %v, want unknown", res.Status)
	}
}

func TestSolve_RandomIsSeeded(t *testing.T) {
	x, y := NewVar("x", KindInt), NewVar("y", KindInt)
	lines := []string{"x >= -500", "x <= 500", "y > x"}
	run := func(seed int64) Assignment {
		cfg := DefaultSolverConfig()
		cfg.ValueHeuristic = ValueOrderRandom
		cfg.RandomSeed = seed
		res, err := solveLinesWithConfig(t, cfg, []Var{x, y}, lines...)
		if err != nil || res.Status != StatusSat {
			t.Fatalf("Solve() = %v, %v", res, err)
		}
		return res.Assignment
	}
	a, b := run(42), run(42)
	if !a.Equal(b) {
		t.Errorf("same seed gave %s and %s", a, b)
	}
	if a["y"].Int() <= a["x"].Int() {
		t.Errorf("y > x violated by %s", a)
	}
}

func TestSolve_Monitor(t *testing.T) {
	x := NewVar("x", KindInt)
	model := NewModel()
	if err := model.AddConstraint(mustBind(t, "x * x == 49", x)); err != nil {
		t.Fatal(err)
	}
	solver := NewSolver(model)
	monitor := NewSolverMonitor()
	solver.SetMonitor(monitor)
	res, err := solver.Solve(context.Background())
	if err != nil || res.Status != StatusSat {
		t.Fatalf("Solve() = %v, %v", res, err)
	}
	if got := res.Assignment["x"].Int(); got != 7 && got != -7 {
		t.Errorf("x = %d, want ±7", got)
	}
	stats := monitor.GetStats()
	if stats.NodesExplored < 1 || stats.SolutionsFound != 1 || stats.PropagationCount < 1 {
		t.Errorf("unexpected stats: %s", stats)
	}
}
