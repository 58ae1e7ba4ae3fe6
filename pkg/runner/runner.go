package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/internal/logging"
)

// Runner drives a harness from an IOHandler.
type Runner struct {
	Handler IOHandler
	Logger  *slog.Logger
	// Banner is printed through SystemOutput before the first read.
	Banner string
}

// Option configures a Runner.
type Option func(*Runner)

// WithInputHandler sets the IO strategy. The default is a TextHandler on stdio.
func WithInputHandler(h IOHandler) Option {
	return func(r *Runner) {
		r.Handler = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithBanner sets a greeting shown once at start.
func WithBanner(banner string) Option {
	return func(r *Runner) {
		r.Banner = banner
	}
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run reads commands until the handler reports EOF, the user quits or ctx is
// cancelled. Evaluation failures are shown to the user and never stop the loop.
func (r *Runner) Run(ctx context.Context, h *harness.Harness) error {
	if h == nil {
		return errors.New("runner: harness is nil")
	}

	if r.Banner != "" {
		if err := r.Handler.SystemOutput(ctx, r.Banner); err != nil {
			return err
		}
	}

	for {
		cmds, err := r.Handler.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		for _, cmd := range cmds {
			quit, err := r.apply(ctx, h, cmd)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

func (r *Runner) apply(ctx context.Context, h *harness.Harness, cmd Command) (bool, error) {
	switch cmd.Kind {
	case CommandEdit:
		h.SetInput(AppendLine(h.Input(), cmd.Text))
	case CommandSet:
		h.SetInput(cmd.Text)
	case CommandClear:
		h.SetInput("")
	case CommandRun:
		outcome, err := h.Run(ctx)
		if err != nil {
			r.Logger.Debug("evaluation failed", "sequence", outcome.Sequence, "error", err)
		}
		return false, r.Handler.Outcome(ctx, outcome, h.Output())
	case CommandShowInput:
		return false, r.Handler.Show(ctx, cmd.Kind, h.Input())
	case CommandShowOutput:
		return false, r.Handler.Show(ctx, cmd.Kind, h.Output())
	case CommandHelp:
		return false, r.Handler.SystemOutput(ctx, HelpText)
	case CommandQuit:
		return true, nil
	default:
		return false, r.Handler.SystemOutput(ctx, fmt.Sprintf("unknown command %q (try :help)", cmd.Text))
	}
	return false, nil
}

// AppendLine adds line to the end of buf, joining with a newline.
func AppendLine(buf, line string) string {
	if buf == "" {
		return line
	}
	return buf + "\n" + line
}
