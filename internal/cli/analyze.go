package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"camdash/internal/model"
	"camdash/internal/service/vision"
)

func analyzeCommand(env *Env) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare every camera with its reference and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := env.backend()
			if err != nil {
				return err
			}
			analysisMode := model.ParseAnalysisMode(mode)
			summary, err := backend.AnalyzeAll(cmd.Context(), analysisMode)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), vision.NewReport(analysisMode, summary))
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(model.ModeComplete), "Analysis mode: complete or structural")
	return cmd
}

func printReport(w io.Writer, r *vision.Report) error {
	fmt.Fprintf(w, "Analysis report (%s): %d analyzed, %d skipped\n\n", r.Mode, r.Analyzed, r.Skipped)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range r.Buckets {
		fmt.Fprintf(tw, "%s\t%d\n", b.Label, b.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.AllGood() {
		fmt.Fprintln(w, "\n✅ Every analyzed camera looks fine.")
		return nil
	}
	printResults(w, "Critical", r.Critical)
	printResults(w, "Problems", r.Problems)
	fmt.Fprintf(w, "\n%d cameras need review\n", r.Suspicious)
	return nil
}

func printResults(w io.Writer, title string, results []model.AnalysisResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, res := range results {
		fmt.Fprintf(w, "  %s - %s: %.1f%%\n", res.Loja, res.Position, res.Score)
	}
}
