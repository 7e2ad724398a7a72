package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

var errUnsatisfied = errors.New("candidate does not satisfy the constraints")

func newCheckCmd(a *app) *cobra.Command {
	var (
		path      string
		candidate []string
		types     map[string]string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a candidate against a constraint file, refining it on failure",
		Long: `check pins the candidate's values and looks for a solution. When none
exists it prints the feasible assignment nearest to the candidate instead
and exits with status 2.`,
		Example: "  seedsynth check --constraints pre.txt --candidate x=5,y=3",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseAssignment(candidate)
			if err != nil {
				return err
			}
			env, set, err := a.loadConstraints(cmd, path, types)
			if err != nil {
				return err
			}
			sampler, refiner, err := a.solverParts()
			if err != nil {
				return err
			}
			checker := symbolic.NewChecker(symbolic.NewMedianSelector(sampler, a.logger), refiner, a.logger)
			sol, ok, err := checker.Check(cmd.Context(), set, env, raw, types)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "satisfied: %t\nsolution:  %s\n", ok, sol)
			if !ok {
				return &searchFailure{errUnsatisfied}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&path, "constraints", "c", "", "constraint file")
	f.StringSliceVar(&candidate, "candidate", nil, "candidate values, e.g. x=5,y=3")
	f.StringToStringVar(&types, "types", nil, "variable types, e.g. x=int,y=double")
	_ = cmd.MarkFlagRequired("constraints")
	_ = cmd.MarkFlagRequired("candidate")
	return cmd
}
