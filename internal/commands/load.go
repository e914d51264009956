package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jesperbk/kontoflow/internal/ingestion"
	"github.com/jesperbk/kontoflow/internal/repository"
)

func newLoadCommand() *cobra.Command {
	var dbPath string
	var fresh bool

	cmd := &cobra.Command{
		Use:   "load <csv-dir>",
		Short: "Merge a directory of Nordea CSV exports into the staging store",
		Long: `Load parses every CSV export in the given directory and merges it into
the staging store, newest file first. Re-running a load is safe: rows are
keyed by content hash and already-staged transactions are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(args[0], dbPath, fresh)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "kontoflow.db", "path to the SQLite staging store")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "drop and recreate the staging table before loading")

	return cmd
}

func runLoad(csvDir, dbPath string, fresh bool) error {
	// Fail fast on bad inputs before the store is touched.
	info, err := os.Stat(csvDir)
	if err != nil {
		return fmt.Errorf("csv directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("csv directory: %s is not a directory", csvDir)
	}
	if parent := filepath.Dir(dbPath); parent != "." {
		if _, err := os.Stat(parent); err != nil {
			return fmt.Errorf("store directory: %w", err)
		}
	}

	db, err := repository.InitDB(dbPath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	repo := repository.NewStagingRepo(db)
	if fresh {
		fmt.Println("Fresh load: dropping staging table")
		if err := repo.Reset(); err != nil {
			return fmt.Errorf("reset staging table: %w", err)
		}
	}

	svc := ingestion.NewService(repo, ingestion.DefaultConfig())
	result, err := svc.LoadDir(csvDir)
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		fmt.Printf("%s (account %s): parsed %d, inserted %d, skipped %d\n",
			f.File, f.Account, f.Parsed, f.Inserted, f.Skipped)
	}
	fmt.Printf("Total inserted: %d, skipped: %d (store: %s)\n",
		result.Inserted, result.Skipped, dbPath)
	return nil
}
