package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/harness/pkg/domain"
)

// JSONRequest is one line of input in JSON mode.
// Fields are applied in order: input, append, command, run.
type JSONRequest struct {
	Input   *string `json:"input,omitempty"`
	Append  *string `json:"append,omitempty"`
	Command string  `json:"command,omitempty"`
	Run     bool    `json:"run,omitempty"`
}

// JSONResponse is one line of output in JSON mode.
type JSONResponse struct {
	Output   *string `json:"output,omitempty"`
	Input    *string `json:"input,omitempty"`
	Sequence uint64  `json:"sequence,omitempty"`
	Rendered bool    `json:"rendered,omitempty"`
	Stale    bool    `json:"stale,omitempty"`
	Error    string  `json:"error,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: enc,
	}
}

// Read decodes the next non-blank line. Malformed lines are answered with an
// error response and skipped.
func (h *JSONHandler) Read(ctx context.Context) ([]Command, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := h.Reader.ReadString('\n')
		if strings.TrimSpace(text) == "" {
			if err != nil {
				return nil, err
			}
			continue
		}

		var req JSONRequest
		if jsonErr := json.Unmarshal([]byte(text), &req); jsonErr != nil {
			if encErr := h.Encoder.Encode(JSONResponse{Error: fmt.Sprintf("invalid request: %v", jsonErr)}); encErr != nil {
				return nil, encErr
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		cmds := req.Commands()
		if len(cmds) == 0 {
			cmds = []Command{{Kind: CommandUnknown, Text: "empty request"}}
		}
		return cmds, nil
	}
}

// Commands expands a request into the commands it stands for.
func (r JSONRequest) Commands() []Command {
	var cmds []Command
	if r.Input != nil {
		cmds = append(cmds, Command{Kind: CommandSet, Text: *r.Input})
	}
	if r.Append != nil {
		cmds = append(cmds, Command{Kind: CommandEdit, Text: *r.Append})
	}
	if r.Command != "" {
		name := r.Command
		if !strings.HasPrefix(name, ":") {
			name = ":" + name
		}
		cmds = append(cmds, ParseCommand(name))
	}
	if r.Run {
		cmds = append(cmds, Command{Kind: CommandRun})
	}
	return cmds
}

// Outcome emits the evaluation result as a single JSON line.
func (h *JSONHandler) Outcome(ctx context.Context, outcome domain.Outcome, output string) error {
	resp := JSONResponse{
		Output:   &output,
		Sequence: outcome.Sequence,
		Rendered: outcome.Rendered,
		Stale:    outcome.Stale,
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	return h.Encoder.Encode(resp)
}

// Show emits {"input": ...} or {"output": ...}.
func (h *JSONHandler) Show(ctx context.Context, kind CommandKind, text string) error {
	if kind == CommandShowInput {
		return h.Encoder.Encode(JSONResponse{Input: &text})
	}
	return h.Encoder.Encode(JSONResponse{Output: &text})
}

// SystemOutput emits {"message": ...}.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(JSONResponse{Message: msg})
}
