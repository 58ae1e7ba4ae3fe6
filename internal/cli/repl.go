package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/internal/config"
	"github.com/aretw0/harness/internal/logging"
	"github.com/aretw0/harness/internal/presentation/tui"
	"github.com/aretw0/harness/pkg/runner"
)

// ReplOptions configures the interactive loop.
type ReplOptions struct {
	Config config.Config
	// JSON switches to NDJSON requests and responses.
	JSON bool
	// Plain disables the banner, colours and glamour rendering.
	Plain bool
	// Style is the glamour style name; empty selects one automatically.
	Style  string
	Stdin  io.Reader
	Stdout io.Writer
	Logger *slog.Logger
}

// RunREPL starts the interactive loop and blocks until the user quits,
// the input ends or ctx is cancelled.
func RunREPL(ctx context.Context, opts ReplOptions) error {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	cache, closeCache, err := NewCache(ctx, opts.Config, opts.Logger)
	if err != nil {
		return err
	}
	defer closeCache()

	h, err := HarnessFactory(opts.Config, cache, debugHooks(opts.Logger), opts.Logger)()
	if err != nil {
		return err
	}

	handler, styled, err := createHandler(opts)
	if err != nil {
		return err
	}

	runnerOpts := []runner.Option{
		runner.WithLogger(opts.Logger),
		runner.WithInputHandler(handler),
	}
	if styled {
		tui.PrintBanner(opts.Stdout, harness.Version)
	}

	opts.Logger.Info("REPL started", "engine", opts.Config.Engine, "json", opts.JSON)
	return HandleExecutionError(runner.NewRunner(runnerOpts...).Run(ctx, h))
}

// createHandler picks the IO strategy. Styling only applies to terminals.
func createHandler(opts ReplOptions) (runner.IOHandler, bool, error) {
	if opts.JSON {
		return runner.NewJSONHandler(opts.Stdin, opts.Stdout), false, nil
	}

	f, isFile := opts.Stdout.(*os.File)
	styled := !opts.Plain && isFile && tui.IsTerminal(f)
	if !styled {
		return runner.NewTextHandler(opts.Stdin, opts.Stdout, runner.WithPrompt("")), false, nil
	}

	render, err := tui.NewRenderer(opts.Style)
	if err != nil {
		return nil, false, err
	}
	return runner.NewTextHandler(opts.Stdin, opts.Stdout,
		runner.WithTextHandlerRenderer(render),
		runner.WithTextHandlerErrorStyle(tui.ErrorStyle(opts.Stdout)),
	), true, nil
}
