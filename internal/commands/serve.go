package commands

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jesperbk/kontoflow/internal/api"
	"github.com/jesperbk/kontoflow/internal/repository"
)

func newServeCommand() *cobra.Command {
	var dbPath string
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the staging store read-only over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dbPath, port)
		},
	}

	defaultPort := os.Getenv("PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	cmd.Flags().StringVar(&dbPath, "db", "kontoflow.db", "path to the SQLite staging store")
	cmd.Flags().StringVar(&port, "port", defaultPort, "HTTP listen port")

	return cmd
}

func runServe(dbPath, port string) error {
	log.Printf("Opening staging store at %s", dbPath)
	db, err := repository.InitDB(dbPath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	repo := repository.NewStagingRepo(db)
	router := api.NewRouter(repo)

	log.Printf("Listening on http://localhost:%s", port)
	log.Printf("Endpoints:")
	log.Printf("  GET /api/v1/transactions")
	log.Printf("  GET /api/v1/transactions/{hash}")
	log.Printf("  GET /api/v1/summary")
	log.Printf("  GET /api/v1/summary/monthly")
	log.Printf("  GET /api/v1/sources")

	if err := http.ListenAndServe(":"+port, router); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
