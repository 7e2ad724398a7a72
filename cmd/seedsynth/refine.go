package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

func newRefineCmd(a *app) *cobra.Command {
	var (
		path    string
		targets []string
		types   map[string]string
		mode    string
	)
	cmd := &cobra.Command{
		Use:     "refine",
		Short:   "Print the feasible assignment nearest to soft target values",
		Example: "  seedsynth refine --constraints c.txt --target x=5",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseAssignment(targets)
			if err != nil {
				return err
			}
			if mode != "" {
				a.cfg.Refiner.Mode = mode
			}
			env, set, err := a.loadConstraints(cmd, path, types)
			if err != nil {
				return err
			}
			_, refiner, err := a.solverParts()
			if err != nil {
				return err
			}
			want, err := symbolic.Coerce(raw, types, env)
			if err != nil {
				return err
			}
			sol, err := refiner.Refine(cmd.Context(), set, env, want)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sol)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&path, "constraints", "c", "", "constraint file")
	f.StringSliceVar(&targets, "target", nil, "soft target values, e.g. x=5")
	f.StringToStringVar(&types, "types", nil, "variable types, e.g. x=int,y=double")
	f.StringVar(&mode, "mode", "", "refine mode: l1 or banded")
	_ = cmd.MarkFlagRequired("constraints")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
