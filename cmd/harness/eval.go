package main

import (
	"context"

	"github.com/aretw0/harness/internal/cli"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate a file once and print the result",
	Long: `Reads the file (default main.edn, "-" for stdin), runs one evaluation and
prints the pretty-printed result. Exits with status 1 when the evaluation fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		path := ""
		if len(args) > 0 {
			path = args[0]
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.Eval(sigCtx, cli.EvalOptions{
			Path:   path,
			Config: cfg,
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Logger: logger,
		})
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
