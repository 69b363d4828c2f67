package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"camdash/internal/service/progress"
)

const barWidth = 30

func downloadCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Fetch new snapshots and follow the progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := env.backend()
			if err != nil {
				return err
			}

			monitor := progress.New(backend, env.logger, nil, 0)
			monitor.Subscribe(printProgress(cmd.OutOrStdout()))
			if err := monitor.Start(cmd.Context()); err != nil {
				return err
			}

			select {
			case <-monitor.Done():
			case <-cmd.Context().Done():
				monitor.Close()
				<-monitor.Done()
				return cmd.Context().Err()
			}

			if final := monitor.Snapshot(); final.State == progress.StateErrored {
				return errors.New(final.Message)
			}
			return nil
		},
	}
}

// printProgress draws a one-line progress bar, ending the line on a
// terminal state.
func printProgress(w io.Writer) progress.Listener {
	return func(s progress.Snapshot) {
		switch {
		case s.State == progress.StateRunning && s.Total > 0:
			filled := min(max(s.Percent, 0), 100) * barWidth / 100
			fmt.Fprintf(w, "\r[%s%s] %3d%% %d/%d %s",
				strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled),
				s.Percent, s.Completed, s.Total, s.Current)
		case s.State.Terminal():
			fmt.Fprintf(w, "\n%s\n", s.Message)
		}
	}
}
