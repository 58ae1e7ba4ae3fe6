package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/harness/internal/config"
	"github.com/aretw0/harness/internal/logging"
)

// DefaultEvalFile is read by Eval when no path is given.
const DefaultEvalFile = "main.edn"

// ErrEvaluationFailed is returned by Eval when the cycle surfaced a failure.
var ErrEvaluationFailed = errors.New("evaluation failed")

// EvalOptions configures a single evaluation.
type EvalOptions struct {
	// Path is the file to evaluate. "-" reads Stdin; empty means DefaultEvalFile.
	Path   string
	Config config.Config
	Stdin  io.Reader
	Stdout io.Writer
	Logger *slog.Logger
}

// Eval runs one trigger cycle over a file and prints the rendered output.
func Eval(ctx context.Context, opts EvalOptions) error {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	input, err := readSource(opts.Path, opts.Stdin)
	if err != nil {
		return err
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

	h.SetInput(input)
	if _, err := h.Run(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}

	_, err = fmt.Fprintln(opts.Stdout, h.Output())
	return err
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	if path == "" {
		path = DefaultEvalFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}
