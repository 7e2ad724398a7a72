package symbolic_test

import (
	"context"
	"fmt"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

func ExampleRefiner_Refine() {
	env, set, _, err := symbolic.Build(symbolic.Lines("x > 100"), nil, symbolic.BuildOptions{})
	if err != nil {
		fmt.Println(err)
		return
	}
	target, _ := symbolic.Coerce(symbolic.RawAssignment{{Name: "x", Text: "5"}}, nil, env)
	r := symbolic.NewRefiner(symbolic.DefaultRefinerConfig(), symbolic.DefaultSolverOptions(), nil)
	sol, err := r.Refine(context.Background(), set, env, target)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(sol)
	// Output: x=101
}

func ExampleChecker_Check() {
	env, set, _, _ := symbolic.Build(symbolic.Lines("out == 10"), nil, symbolic.BuildOptions{})
	sampler := symbolic.NewSampler(symbolic.DefaultSamplerConfig(), symbolic.DefaultSolverOptions(), nil)
	checker := symbolic.NewChecker(
		symbolic.NewMedianSelector(sampler, nil),
		symbolic.NewRefiner(symbolic.DefaultRefinerConfig(), symbolic.DefaultSolverOptions(), nil),
		nil)

	for _, out := range []string{"10", "12"} {
		sol, ok, _ := checker.Check(context.Background(), set, env, symbolic.RawAssignment{{Name: "out", Text: out}}, nil)
		fmt.Println(out, ok, sol)
	}
	// Output:
	// 10 true out=10
	// 12 false out=10
}
