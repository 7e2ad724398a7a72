package solver

import (
	"context"
	"errors"
	"math"
	"testing"
)

func distance(targets map[string]float64, vars ...Var) *Expr {
	var terms []*Expr
	for _, v := range vars {
		t := targets[v.Name()]
		c := Const(RealValue(t))
		if v.Kind() == KindInt && t == math.Trunc(t) {
			c = Const(IntValue(int64(t)))
		}
		terms = append(terms, Abs(Sub(Ref(v), c)))
	}
	return Sum(terms...)
}

func TestMinimize_NearestFeasible(t *testing.T) {
	x := NewVar("x", KindInt)
	model := NewModel()
	if err := model.AddConstraint(mustBind(t, "x > 100", x)); err != nil {
		t.Fatal(err)
	}
	targets := map[string]float64{"x": 5}
	res, err := NewSolver(model).Minimize(context.Background(), distance(targets, x), WithHints(targets))
	if err != nil {
		t.Fatalf("Minimize() error = %v", err)
	}
	if !res.Optimal {
		t.Error("Optimal = false, want true")
	}
	if got := res.Assignment["x"].Int(); got != 101 {
		t.Errorf("x = %d, want 101", got)
	}
	if got := res.Objective.Int(); got != 96 {
		t.Errorf("Objective = %d, want 96", got)
	}
}

func TestMinimize_ProvesOptimality(t *testing.T) {
	x, y := NewVar("x", KindInt), NewVar("y", KindInt)
	model := NewModel()
	if err := model.AddConstraint(mustBind(t, "x + y >= 10", x, y)); err != nil {
		t.Fatal(err)
	}
	targets := map[string]float64{"x": 2, "y": 3}
	monitor := NewSolverMonitor()
	solver := NewSolver(model)
	solver.SetMonitor(monitor)
	res, err := solver.Minimize(context.Background(), distance(targets, x, y), WithHints(targets))
	if err != nil {
		t.Fatalf("Minimize() error = %v", err)
	}
	if got := res.Objective.Int(); got != 5 {
		t.Errorf("Objective = %d, want 5", got)
	}
	if !res.Optimal {
		t.Error("Optimal = false, want true")
	}
	if res.Assignment["x"].Int()+res.Assignment["y"].Int() < 10 {
		t.Errorf("x + y >= 10 violated by %s", res.Assignment)
	}
	if monitor.GetStats().Rounds < 2 {
		t.Errorf("Rounds = %d, want at least 2", monitor.GetStats().Rounds)
	}
}

func TestMinimize_Infeasible(t *testing.T) {
	x := NewVar("x", KindInt)
	model := NewModel()
	for _, l := range []string{"x > 5", "x < 3"} {
		if err := model.AddConstraint(mustBind(t, l, x)); err != nil {
			t.Fatal(err)
		}
	}
	res, err := NewSolver(model).Minimize(context.Background(), Abs(Ref(x)))
	if err != nil {
		t.Fatalf("Minimize() error = %v", err)
	}
	if res.Status != StatusUnsat {
		t.Errorf("Status = %v, want unsat", res.Status)
	}
}

func TestMinimize_Real(t *testing.T) {
	x := NewVar("x", KindReal)
	model := NewModel()
	if err := model.AddConstraint(mustBind(t, "x > 100.5", x)); err != nil {
		t.Fatal(err)
	}
	targets := map[string]float64{"x": 5}
	res, err := NewSolver(model).Minimize(context.Background(), distance(targets, x), WithHints(targets))
	if err != nil && !errors.Is(err, ErrSearchLimitReached) {
		t.Fatalf("Minimize() error = %v", err)
	}
	if res.Status != StatusSat {
		t.Fatalf("Status = %v, want sat", res.Status)
	}
	if got := res.Objective.Float(); math.Abs(got-95.5) > 1e-5 {
		t.Errorf("Objective = %v, want about 95.5", got)
	}
	if res.Assignment["x"].Float() <= 100.5 {
		t.Errorf("x = %v violates x > 100.5", res.Assignment["x"])
	}
}

func TestMinimize_RejectsNonNumericObjective(t *testing.T) {
	x := NewVar("x", KindInt)
	model := NewModel()
	if err := model.AddConstraint(mustBind(t, "x > 0", x)); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSolver(model).Minimize(context.Background(), Gt(Ref(x), Const(IntValue(1)))); err == nil {
		t.Error("Minimize() with a predicate objective should fail")
	}
}

func TestMinimize_HintInsideGap(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"x >= 3 or x <= -3", 3},
		{"x < -5 or x > 5", 6},
		{"x*x >= 9", 3},
		{"abs(x) >= 4", 4},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			x := NewVar("x", KindInt)
			model := NewModel()
			if err := model.AddConstraint(mustBind(t, tt.src, x)); err != nil {
				t.Fatal(err)
			}
			targets := map[string]float64{"x": 0}
			monitor := NewSolverMonitor()
			solver := NewSolver(model)
			solver.SetMonitor(monitor)
			res, err := solver.Minimize(context.Background(), distance(targets, x), WithHints(targets), WithMaxRounds(64))
			if err != nil {
				t.Fatalf("Minimize() error = %v", err)
			}
			if !res.Optimal {
				t.Error("Optimal = false, want true")
			}
			if got := res.Objective.Int(); got != tt.want {
				t.Errorf("Objective = %d (x = %d), want %d", got, res.Assignment["x"].Int(), tt.want)
			}
			if rounds := monitor.GetStats().Rounds; rounds > 40 {
				t.Errorf("Rounds = %d, want the cutoff to bisect", rounds)
			}
		})
	}
}

func TestMinimize_RealHintInsideGap(t *testing.T) {
	x := NewVar("x", KindReal)
	model := NewModel()
	if err := model.AddConstraint(mustBind(t, "x >= 2.5 or x <= -3", x)); err != nil {
		t.Fatal(err)
	}
	targets := map[string]float64{"x": 0}
	res, err := NewSolver(model).Minimize(context.Background(), distance(targets, x), WithHints(targets), WithMaxRounds(64))
	if err != nil {
		t.Fatalf("Minimize() error = %v", err)
	}
	if got := res.Assignment["x"].Float(); math.Abs(got-2.5) > 1e-5 {
		t.Errorf("x = %v, want about 2.5", got)
	}
}
