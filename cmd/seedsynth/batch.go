package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gitrdm/seedsynth/internal/pipeline"
)

func newBatchCmd(a *app) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch MANIFEST",
		Short: "Run every problem listed in a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pipeline.LoadManifest(args[0])
			if err != nil {
				return err
			}
			cfg := a.cfg
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			results, err := pipeline.New(cfg, pipeline.WithLogger(a.logger)).RunBatch(cmd.Context(), m.Problems)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROBLEM\tOUTCOME\tINPUTS\tFOLDER")
			failed, broken := 0, 0
			for _, r := range results {
				outcome, inputs, dir := pipeline.OutcomeError, "", ""
				if r.Report != nil {
					outcome, inputs, dir = r.Report.Outcome, r.Report.Inputs, r.Report.Dir
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Files.Name, outcome, inputs, dir)
				switch {
				case r.Err == nil:
				case pipeline.IsSearchFailure(r.Err):
					failed++
				default:
					broken++
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if broken > 0 {
				return fmt.Errorf("%d of %d problem(s) failed to run", broken, len(results))
			}
			if failed > 0 {
				return &searchFailure{fmt.Errorf("%d of %d problem(s) found no input", failed, len(results))}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "problems run at once (overrides the configuration)")
	return cmd
}
