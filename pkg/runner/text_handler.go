package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/harness/pkg/domain"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	// ErrorStyle decorates failure messages, e.g. with terminal colours.
	ErrorStyle func(string) string
	Prompt     string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerErrorStyle configures how failures are decorated.
func WithTextHandlerErrorStyle(style func(string) string) TextHandlerOption {
	return func(h *TextHandler) {
		h.ErrorStyle = style
	}
}

// WithPrompt replaces the default "> " prompt. Empty disables it.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "> ",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines on its own goroutine so Read can honour cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

// Read returns the command typed on the next line.
func (h *TextHandler) Read(ctx context.Context) ([]Command, error) {
	h.initPump()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		fmt.Fprint(h.Writer, h.Prompt)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return nil, io.EOF
		}
		if res.err != nil {
			return nil, res.err
		}
		line := strings.TrimSuffix(res.text, "\n")
		line = strings.TrimSuffix(line, "\r")
		return []Command{ParseCommand(line)}, nil
	}
}

// Outcome prints the rendered output, or the failure when there is one.
func (h *TextHandler) Outcome(ctx context.Context, outcome domain.Outcome, output string) error {
	if outcome.Err != nil {
		msg := domain.ErrorMarker(outcome.Err)
		if h.ErrorStyle != nil {
			msg = h.ErrorStyle(msg)
		}
		_, err := fmt.Fprintln(h.Writer, msg)
		return err
	}
	if outcome.Stale {
		return h.SystemOutput(ctx, "result discarded: a newer evaluation was already shown")
	}
	return h.print(output)
}

// Show prints a buffer. The output buffer goes through the renderer.
func (h *TextHandler) Show(ctx context.Context, kind CommandKind, text string) error {
	if kind == CommandShowOutput {
		return h.print(text)
	}
	_, err := fmt.Fprintln(h.Writer, text)
	return err
}

func (h *TextHandler) print(text string) error {
	output := text
	if h.Renderer != nil && text != "" {
		if rendered, err := h.Renderer(text); err == nil {
			output = strings.Trim(rendered, "\n")
		}
	}
	_, err := fmt.Fprintln(h.Writer, output)
	return err
}

// SystemOutput prints a meta-message with a "[System]" prefix.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}
