package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  exactArgs(0),
	// Printing the version must work with a broken config file.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(stdout, buildinfo.Read().String())
	},
}

func init() {
	rootCmd.Version = buildinfo.Version()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	rootCmd.AddCommand(versionCmd)
}
