package main

import (
	"context"

	"github.com/aretw0/harness/internal/cli"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Edit and evaluate input interactively",
	Long: `Starts the interactive loop. Each line you type is appended to the input;
":run" evaluates it and prints the result. Use --json for NDJSON requests
such as {"input": "(+ 1 2)", "run": true}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		plain, _ := cmd.Flags().GetBool("plain")
		style, _ := cmd.Flags().GetString("style")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunREPL(sigCtx, cli.ReplOptions{
			Config: cfg,
			JSON:   jsonMode,
			Plain:  plain,
			Style:  style,
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Logger: logger,
		})
	},
}

func init() {
	rootCmd.AddCommand(replCmd)

	replCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	replCmd.Flags().Bool("plain", false, "Disable the banner and styled output")
	replCmd.Flags().String("style", "", "Output style for terminals (dark, light, notty, ...)")

	// 'repl' is the default if no command is provided
	rootCmd.RunE = replCmd.RunE
	rootCmd.Flags().AddFlagSet(replCmd.Flags())
}
