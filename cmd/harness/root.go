package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/harness/internal/cli"
	"github.com/aretw0/harness/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "harness",
	Short: "Harness is an interactive evaluation harness",
	Long: `Harness holds an editable input text, hands it to a computation engine when
asked, and shows the structured result as pretty-printed JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default: harness.yaml, harness.yml or harness.json if present)")
	pf.String("engine", "", "Computation engine: read, eval, echo or process")
	pf.String("failure-policy", "", "What to show when an evaluation fails: marker or retain")
	pf.String("ordering", "", "Which of overlapping results wins: last-submitted or last-completed")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("cache", "", "Result cache backend: none, memory or redis")
	pf.String("redis-addr", "", "Redis address for the redis cache")
}

// loadConfig layers flags that were set explicitly over file and env settings.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}

	overrides := map[string]*string{
		"engine":         &cfg.Engine,
		"failure-policy": &cfg.FailurePolicy,
		"ordering":       &cfg.Ordering,
		"log-level":      &cfg.LogLevel,
		"cache":          &cfg.Cache.Backend,
		"redis-addr":     &cfg.Redis.Addr,
	}
	for name, dst := range overrides {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	if cmd.Flags().Changed("redis-addr") && !cmd.Flags().Changed("cache") && cfg.Cache.Backend == config.CacheNone {
		cfg.Cache.Backend = config.CacheRedis
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := cli.NewLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
