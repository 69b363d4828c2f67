package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"camdash/internal/dto"
	"camdash/internal/model"
	"camdash/internal/repository/sqlite"
	"camdash/internal/service/journal"
)

func activityCommand(env *Env) *cobra.Command {
	var (
		kind    string
		limit   int
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List the activity journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlite.New(env.config.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			j := journal.New(sqlite.NewActivityRepository(db), env.logger)

			if summary {
				counts, err := j.Summary(cmd.Context())
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), counts)
			}

			entries, err := j.Recent(cmd.Context(), &dto.ActivityFilter{Kind: model.ActivityKind(kind), Limit: limit})
			if err != nil {
				return err
			}
			return printActivity(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only entries of this kind, e.g. mark or download")
	cmd.Flags().IntVarP(&limit, "limit", "n", sqlite.DefaultActivityLimit, "Maximum number of entries")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print the number of entries per kind")
	return cmd
}

func printActivity(w io.Writer, entries []model.Activity) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No activity recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tSUBJECT\tDETAIL")
	for _, a := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Kind, a.Subject, a.Detail)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, counts map[model.ActivityKind]int) error {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range kinds {
		fmt.Fprintf(tw, "%s\t%d\n", k, counts[model.ActivityKind(k)])
	}
	return tw.Flush()
}
