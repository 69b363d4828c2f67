package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"camdash/internal/repository/sqlite"
)

// MigrateOptions selects the maintenance applied after the schema.
type MigrateOptions struct {
	// PruneDays removes entries older than this many days; zero keeps all.
	PruneDays int
	// Reset removes every entry.
	Reset bool
}

// Migrate creates or upgrades the activity database and applies opts.
func Migrate(ctx context.Context, dbPath string, opts MigrateOptions, out io.Writer) error {
	db, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Fprintf(out, "Schema of %s is up to date\n", dbPath)

	repo := sqlite.NewActivityRepository(db)
	switch {
	case opts.Reset:
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "✅ Activity journal cleared")
	case opts.PruneDays > 0:
		cutoff := time.Now().AddDate(0, 0, -opts.PruneDays)
		n, err := repo.DeleteBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✅ Removed %d entries older than %d days\n", n, opts.PruneDays)
	}
	return nil
}

func migrateCommand(env *Env) *cobra.Command {
	var opts MigrateOptions

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the activity database and prune old entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Migrate(cmd.Context(), env.config.DBPath, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.PruneDays, "prune-days", 0, "Remove entries older than this many days")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "Remove every entry")
	return cmd
}
