package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/harness/pkg/domain"
)

// waitDelay bounds how long output pipes are drained after the process is killed.
const waitDelay = 2 * time.Second

// EnvInputBytes carries the size of the input to the child process.
const EnvInputBytes = "HARNESS_INPUT_BYTES"

// Engine evaluates input by running an external program.
// The input text is written to the program's stdin. A stdout holding a single
// JSON document becomes the structured result; any other output is returned as a
// string. A non-zero exit is a failure carrying the program's stderr.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine for cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate implements ports.ComputationEngine.
func (e *Engine) Evaluate(ctx context.Context, input string) (any, error) {
	if !e.cfg.Enabled() {
		return nil, fmt.Errorf("process engine: no command configured")
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.cfg.Command, e.cfg.Args...)
	cmd.Dir = e.cfg.Dir
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = append(cmd.Environ(), e.environment(len(input))...)
	cmd.WaitDelay = waitDelay

	// Capture Output
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", e.cfg.Command, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", e.cfg.Command, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", e.cfg.Command, err, msg)
	}

	return decodeOutput(stdout.Bytes()), nil
}

// environment renders Env in key order, plus the input size.
func (e *Engine) environment(inputBytes int) []string {
	keys := make([]string, 0, len(e.cfg.Env))
	for k := range e.cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		env = append(env, k+"="+e.cfg.Env[k])
	}
	return append(env, fmt.Sprintf("%s=%d", EnvInputBytes, inputBytes))
}

// decodeOutput keeps JSON documents structured (and ordered) and falls back to text.
func decodeOutput(out []byte) any {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		if v, err := domain.ParseJSON(trimmed); err == nil {
			return v
		}
	}
	return string(trimmed)
}
