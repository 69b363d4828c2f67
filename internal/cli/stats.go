package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"camdash/internal/render"
)

func statsCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the camera server counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := env.backend()
			if err != nil {
				return err
			}
			stats, err := backend.Stats(cmd.Context())
			if err != nil {
				return err
			}
			v := render.NewStatsView(stats, time.Now())

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Cameras\t%d\n", v.TotalCameras)
			fmt.Fprintf(tw, "Stores\t%d\n", v.TotalStores)
			fmt.Fprintf(tw, "Marked bad\t%d\n", v.MarkedBad)
			fmt.Fprintf(tw, "OK\t%d\n", v.MarkedOK)
			fmt.Fprintf(tw, "Storage\t%s\n", v.TotalSizeMB)
			fmt.Fprintf(tw, "Last update\t%s\n", v.LastUpdate)
			return tw.Flush()
		},
	}
}
