package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/aretw0/harness/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHarness(t *testing.T, opts ...harness.Option) *harness.Harness {
	t.Helper()
	if len(opts) == 0 {
		opts = []harness.Option{harness.WithEngineName("eval")}
	}
	h, err := harness.New(opts...)
	require.NoError(t, err)
	return h
}

func runText(t *testing.T, h *harness.Harness, script string) string {
	t.Helper()
	var out bytes.Buffer
	r := runner.NewRunner(runner.WithInputHandler(
		runner.NewTextHandler(strings.NewReader(script), &out, runner.WithPrompt("")),
	))
	require.NoError(t, r.Run(context.Background(), h))
	return out.String()
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want runner.Command
	}{
		{"(+ 1 2)", runner.Command{Kind: runner.CommandEdit, Text: "(+ 1 2)"}},
		{"  indented", runner.Command{Kind: runner.CommandEdit, Text: "  indented"}},
		{"", runner.Command{Kind: runner.CommandEdit, Text: ""}},
		{":run", runner.Command{Kind: runner.CommandRun}},
		{" :q ", runner.Command{Kind: runner.CommandQuit}},
		{":clear", runner.Command{Kind: runner.CommandClear}},
		{":input", runner.Command{Kind: runner.CommandShowInput}},
		{":output", runner.Command{Kind: runner.CommandShowOutput}},
		{":nope", runner.Command{Kind: runner.CommandUnknown, Text: ":nope"}},
		{"::keyword", runner.Command{Kind: runner.CommandEdit, Text: ":keyword"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, runner.ParseCommand(tt.line))
		})
	}
}

func TestAppendLine(t *testing.T) {
	assert.Equal(t, "a", runner.AppendLine("", "a"))
	assert.Equal(t, "a\nb", runner.AppendLine("a", "b"))
	assert.Equal(t, "a\n", runner.AppendLine("a", ""))
}

func TestRunner_TextSession(t *testing.T) {
	h := newHarness(t)
	out := runText(t, h, "(defn a () 1)\n(defn b () (+ a 1))\n:run\n:quit\n(+ 1 1)\n")

	assert.Equal(t, "{\n    \"a\": 1,\n    \"b\": 2\n}\n", out)
	assert.Equal(t, "(defn a () 1)\n(defn b () (+ a 1))", h.Input())
	assert.Equal(t, "{\n    \"a\": 1,\n    \"b\": 2\n}", h.Output())
}

func TestRunner_EditingDoesNotEvaluate(t *testing.T) {
	h := newHarness(t)
	out := runText(t, h, "(+ 1 2)\n")

	assert.Empty(t, out)
	assert.Equal(t, "(+ 1 2)", h.Input())
	assert.Equal(t, "", h.Output())
}

func TestRunner_FailureIsShownAndLoopContinues(t *testing.T) {
	h := newHarness(t)
	out := runText(t, h, "(+ 1 nope)\n:run\n:clear\n(* 2 3)\n:run\n")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], domain.ErrorMarkerPrefix), lines[0])
	assert.Contains(t, lines[0], "undefined symbol")
	assert.Equal(t, "6", lines[1])
}

func TestRunner_RetainPolicyStillReportsFailure(t *testing.T) {
	h := newHarness(t, harness.WithEngineName("eval"), harness.WithFailurePolicy(domain.FailureRetain))
	out := runText(t, h, "(+ 1 1)\n:run\n:clear\n(/ 1 0)\n:run\n:output\n")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "error: engine failure: "), lines[1])
	assert.Contains(t, lines[1], "division by zero")
	assert.Equal(t, "2", lines[2], "the last good output is retained")
	assert.Equal(t, "2", h.Output())
}

func TestRunner_ShowCommands(t *testing.T) {
	h := newHarness(t)
	out := runText(t, h, "line one\nline two\n:input\n:bogus\n")

	assert.Contains(t, out, "line one\nline two\n")
	assert.Contains(t, out, `[System] unknown command ":bogus"`)
}

func TestRunner_RendererDecoratesOutput(t *testing.T) {
	h := newHarness(t, harness.WithEngine(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		return input, nil
	})))

	var out bytes.Buffer
	handler := runner.NewTextHandler(strings.NewReader("hi\n:run\n"), &out,
		runner.WithPrompt(""),
		runner.WithTextHandlerRenderer(func(s string) (string, error) { return "<" + s + ">\n", nil }),
	)
	require.NoError(t, runner.NewRunner(runner.WithInputHandler(handler)).Run(context.Background(), h))
	assert.Equal(t, "<\"hi\">\n", out.String())
}

func TestRunner_Banner(t *testing.T) {
	var out bytes.Buffer
	handler := runner.NewTextHandler(strings.NewReader(""), &out, runner.WithPrompt(""))
	r := runner.NewRunner(runner.WithInputHandler(handler), runner.WithBanner("hello"))
	require.NoError(t, r.Run(context.Background(), newHarness(t)))
	assert.Equal(t, "[System] hello\n", out.String())
}

func TestRunner_CancelledContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := runner.NewTextHandler(pr, &bytes.Buffer{})
	err := runner.NewRunner(runner.WithInputHandler(handler)).Run(ctx, newHarness(t))
	assert.NoError(t, err, "cancellation ends the session cleanly")
}

func TestRunner_NilHarness(t *testing.T) {
	err := runner.NewRunner(runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(""), &bytes.Buffer{}))).
		Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunner_JSONSession(t *testing.T) {
	h := newHarness(t)
	in := strings.Join([]string{
		`{"input": "(+ 2 2)", "run": true}`,
		``,
		`not json`,
		`{"append": "(defn x () 1)"}`,
		`{"command": "input"}`,
		`{"input": "(/ 1 0)", "run": true}`,
		`{"command": "quit"}`,
		`{"run": true}`,
	}, "\n")

	var out bytes.Buffer
	r := runner.NewRunner(runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(in), &out)))
	require.NoError(t, r.Run(context.Background(), h))

	var responses []runner.JSONResponse
	dec := json.NewDecoder(&out)
	for dec.More() {
		var resp runner.JSONResponse
		require.NoError(t, dec.Decode(&resp))
		responses = append(responses, resp)
	}
	require.Len(t, responses, 4)

	require.NotNil(t, responses[0].Output)
	assert.Equal(t, "4", *responses[0].Output)
	assert.Equal(t, uint64(1), responses[0].Sequence)
	assert.True(t, responses[0].Rendered)
	assert.Empty(t, responses[0].Error)

	assert.Contains(t, responses[1].Error, "invalid request")

	require.NotNil(t, responses[2].Input)
	assert.Equal(t, "(+ 2 2)\n(defn x () 1)", *responses[2].Input)

	assert.Contains(t, responses[3].Error, "division by zero")
	assert.Equal(t, uint64(2), responses[3].Sequence)
	require.NotNil(t, responses[3].Output)
	assert.True(t, strings.HasPrefix(*responses[3].Output, domain.ErrorMarkerPrefix))
}

func TestJSONRequest_Commands(t *testing.T) {
	text := "x"
	cmds := runner.JSONRequest{Input: &text, Command: "clear", Run: true}.Commands()
	assert.Equal(t, []runner.Command{
		{Kind: runner.CommandSet, Text: "x"},
		{Kind: runner.CommandClear},
		{Kind: runner.CommandRun},
	}, cmds)

	assert.Empty(t, runner.JSONRequest{}.Commands())
}

type failingHandler struct{ runner.IOHandler }

func (failingHandler) Read(ctx context.Context) ([]runner.Command, error) {
	return nil, errors.New("broken terminal")
}

func TestRunner_ReadErrorIsReturned(t *testing.T) {
	err := runner.NewRunner(runner.WithInputHandler(failingHandler{})).Run(context.Background(), newHarness(t))
	assert.EqualError(t, err, "broken terminal")
}
