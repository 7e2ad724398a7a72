package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gitrdm/seedsynth/internal/cdecl"
)

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types FILE",
		Short: "List the variable declarations of a C file and their type tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cdecl.NewScanner(a.logger).ScanFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTOKEN\tDECLARED\tLINE")
			for _, d := range res.Declarations {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", d.Name, d.Token, d.Raw, d.Line)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(res.Conflicts) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "conflicting declarations: %v\n", res.Conflicts)
			}
			return nil
		},
	}
}
