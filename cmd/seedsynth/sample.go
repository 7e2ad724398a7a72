package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

func newSampleCmd(a *app) *cobra.Command {
	var (
		path   string
		k      int
		types  map[string]string
		median bool
	)
	cmd := &cobra.Command{
		Use:     "sample",
		Short:   "Print pairwise diverse solutions of a constraint file",
		Example: "  seedsynth sample --constraints c.txt -k 5 --types x=int,y=double",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, set, err := a.loadConstraints(cmd, path, types)
			if err != nil {
				return err
			}
			sampler, _, err := a.solverParts()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if median {
				sols, err := symbolic.NewMedianSelector(sampler, a.logger).Select(cmd.Context(), set, env, k)
				if err != nil {
					return err
				}
				if len(sols) == 0 {
					return &searchFailure{symbolic.ErrInfeasible}
				}
				for i, s := range sols {
					fmt.Fprintf(out, "%d: %s\n", i+1, s)
				}
				return nil
			}

			st := sampler.Sample(set, env, k)
			n := 0
			for st.Next(cmd.Context()) {
				n++
				fmt.Fprintf(out, "%d: %s (distance %g)\n", n, st.Solution(), st.Threshold())
			}
			if err := st.Err(); err != nil {
				return err
			}
			if n == 0 {
				return &searchFailure{symbolic.ErrInfeasible}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&path, "constraints", "c", "", "constraint file")
	f.IntVarP(&k, "k", "k", 3, "number of solutions")
	f.StringToStringVar(&types, "types", nil, "variable types, e.g. x=int,y=double")
	f.BoolVar(&median, "median", false, "print median-of-three selections instead of the raw stream")
	_ = cmd.MarkFlagRequired("constraints")
	return cmd
}
