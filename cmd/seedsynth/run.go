package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitrdm/seedsynth/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		files     pipeline.Files
		logFolder string
		model     string
		provider  string
		baseURL   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search for fragment inputs satisfying the pre- and postcondition",
		Example: `  seedsynth run --fragment frag.c --program prog.c --pre pre.txt --post post.txt
  seedsynth run --fragment frag.c --program prog.c --pre pre.txt --post post.txt --model gpt-4o --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if logFolder != "" {
				cfg.LogFolder = logFolder
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if provider != "" {
				cfg.LLM.Provider = provider
			}
			if baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			rep, err := pipeline.New(cfg, pipeline.WithLogger(a.logger)).Run(cmd.Context(), files)
			if rep != nil {
				printReport(cmd.OutOrStdout(), rep)
			}
			if err != nil && pipeline.IsSearchFailure(err) {
				return &searchFailure{err}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&files.Fragment, "fragment", "", "file holding the fragment")
	f.StringVar(&files.Program, "program", "", "file holding the enclosing program")
	f.StringVar(&files.Pre, "pre", "", "precondition constraint file")
	f.StringVar(&files.Post, "post", "", "postcondition constraint file")
	f.StringVar(&logFolder, "log-folder", "", "folder receiving the run directory")
	f.StringVar(&model, "model", "", "language model name")
	f.StringVar(&provider, "provider", "", "model provider: openai or gemini")
	f.StringVar(&baseURL, "base-url", "", "OpenAI-compatible endpoint")
	for _, name := range []string{"fragment", "program", "pre", "post"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func printReport(w io.Writer, rep *pipeline.Report) {
	if rep.Name != "" {
		fmt.Fprintf(w, "problem:  %s\n", rep.Name)
	}
	fmt.Fprintf(w, "run:      %s\n", rep.RunID)
	fmt.Fprintf(w, "folder:   %s\n", rep.Dir)
	fmt.Fprintf(w, "outcome:  %s\n", rep.Outcome)
	if rep.Accepted {
		fmt.Fprintf(w, "inputs:   %s\n", rep.Inputs)
		fmt.Fprintf(w, "outputs:  %s\n", rep.Outputs)
	}
	if rep.Error != "" {
		fmt.Fprintf(w, "error:    %s\n", rep.Error)
	}
	if len(rep.Trace) > 0 {
		fmt.Fprintf(w, "trace:\n  %s\n", strings.Join(rep.Trace, "\n  "))
	}
}
