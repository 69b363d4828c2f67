package main

import (
	"context"
	"flag"
	"log"
	"os"

	"camdash/internal/cli"
)

func main() {
	dbPath := flag.String("db", "data/camdash.db", "Database path")
	pruneDays := flag.Int("prune-days", 0, "Remove activity older than this many days")
	reset := flag.Bool("reset", false, "Remove every activity entry")
	flag.Parse()

	opts := cli.MigrateOptions{PruneDays: *pruneDays, Reset: *reset}
	if err := cli.Migrate(context.Background(), *dbPath, opts, os.Stdout); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}
