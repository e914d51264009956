package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jesperbk/kontoflow/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "kontoflow",
		Short:   "Nordea CSV ingestion into a deduplicated staging store",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}
