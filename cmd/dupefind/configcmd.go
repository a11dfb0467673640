package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dupefind/dupefind/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold dupefind configuration",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default YAML config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "dupefind.yaml", "Path to write the config file")
	return cmd
}
