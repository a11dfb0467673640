package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "dupefind",
		Short:   "Find duplicate files by name, size, or content",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
