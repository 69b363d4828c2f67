package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"camdash/internal/export"
)

func exportCommand(env *Env) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the CSV report of cameras marked as bad",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := env.backend()
			if err != nil {
				return err
			}
			rows, err := backend.ExportMarked(cmd.Context())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := export.New(env.config.Locale).Write(&buf, rows); err != nil {
				return err
			}

			if out == "-" {
				_, err := buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if out == "" {
				out = export.FileName(time.Now())
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d marked cameras written to %s\n", len(rows), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, - for stdout (default cameras_ruins_<date>.csv)")
	return cmd
}
