package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/harness"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of harness",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "harness version %s\n", strings.TrimSpace(harness.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
