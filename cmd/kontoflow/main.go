package main

import (
	"os"

	"github.com/jesperbk/kontoflow/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
