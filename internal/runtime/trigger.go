package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/harness/internal/logging"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/aretw0/harness/pkg/render"
	"github.com/aretw0/harness/pkg/state"
)

// ErrNoEngine is reported when a trigger fires without a computation engine.
var ErrNoEngine = errors.New("no computation engine configured")

// Trigger runs the evaluation cycle: snapshot the input, call the engine,
// pretty-print the result and replace the output.
type Trigger struct {
	input  *state.Input
	output *state.Output
	engine ports.ComputationEngine

	policy   domain.FailurePolicy
	ordering domain.Ordering
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	submitted uint64 // last sequence handed out
	settled   uint64 // newest sequence whose outcome was applied
	last      domain.Outcome
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithFailurePolicy selects what a failed evaluation does to the output.
func WithFailurePolicy(p domain.FailurePolicy) Option {
	return func(t *Trigger) {
		if p != "" {
			t.policy = p
		}
	}
}

// WithOrdering selects which of several overlapping evaluations is rendered.
func WithOrdering(o domain.Ordering) Option {
	return func(t *Trigger) {
		if o != "" {
			t.ordering = o
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(t *Trigger) {
		t.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock overrides the time source used for events and durations.
func WithClock(now func() time.Time) Option {
	return func(t *Trigger) {
		t.now = now
	}
}

// NewTrigger binds an input, an output and an engine.
func NewTrigger(input *state.Input, output *state.Output, engine ports.ComputationEngine, opts ...Option) *Trigger {
	t := &Trigger{
		input:    input,
		output:   output,
		engine:   engine,
		policy:   domain.FailureMarker,
		ordering: domain.OrderLastSubmitted,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run performs one evaluation cycle and blocks until the engine returns.
// The returned error is the surfaced failure (also recorded in the Outcome);
// Run never panics on behalf of the engine.
func (t *Trigger) Run(ctx context.Context) (domain.Outcome, error) {
	seq, snapshot := t.begin(ctx)
	outcome := t.finish(ctx, seq, snapshot)
	return outcome, outcome.Err
}

// RunAsync takes the input snapshot immediately and evaluates it on a new goroutine.
// The channel yields exactly one Outcome and is then closed.
func (t *Trigger) RunAsync(ctx context.Context) <-chan domain.Outcome {
	seq, snapshot := t.begin(ctx)
	ch := make(chan domain.Outcome, 1)
	go func() {
		defer close(ch)
		ch <- t.finish(ctx, seq, snapshot)
	}()
	return ch
}

// LastOutcome returns the outcome of the newest cycle that was applied.
func (t *Trigger) LastOutcome() domain.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// begin assigns a sequence number and snapshots the input.
// Strings are immutable, so later edits cannot reach the snapshot.
func (t *Trigger) begin(ctx context.Context) (uint64, string) {
	t.mu.Lock()
	t.submitted++
	seq := t.submitted
	snapshot := t.input.Get()
	t.mu.Unlock()

	if t.hooks.OnEvaluateStart != nil {
		t.hooks.OnEvaluateStart(ctx, &domain.EvaluationEvent{
			EventBase: domain.EventBase{Timestamp: t.now(), Type: domain.EventEvaluateStart},
			Sequence:  seq,
			Input:     snapshot,
		})
	}
	t.logger.Debug("Evaluation started", "seq", seq, "input_size", len(snapshot))
	return seq, snapshot
}

func (t *Trigger) finish(ctx context.Context, seq uint64, snapshot string) domain.Outcome {
	start := t.now()

	text, err := t.evaluate(ctx, snapshot)

	outcome := t.apply(seq, snapshot, text, err)
	outcome.Duration = t.now().Sub(start)

	switch {
	case outcome.Stale:
		t.logger.Debug("Evaluation discarded", "seq", seq, "reason", "newer submission already rendered")
	case outcome.Err != nil:
		t.logger.Warn("Evaluation failed", "seq", seq, "error", outcome.Err, "policy", t.policy)
	default:
		t.logger.Debug("Evaluation rendered", "seq", seq, "output_size", len(outcome.Output), "duration", outcome.Duration)
	}

	if t.hooks.OnEvaluateDone != nil {
		t.hooks.OnEvaluateDone(ctx, &domain.EvaluationEvent{
			EventBase: domain.EventBase{Timestamp: t.now(), Type: domain.EventEvaluateDone},
			Sequence:  seq,
			Input:     snapshot,
			Output:    outcome.Output,
			Err:       outcome.Err,
			Stale:     outcome.Stale,
			Duration:  outcome.Duration,
		})
	}
	return outcome
}

// evaluate calls the engine and renders its result.
// Engine errors and panics become *domain.EngineFailure.
func (t *Trigger) evaluate(ctx context.Context, input string) (text string, err error) {
	if t.engine == nil {
		return "", &domain.EngineFailure{Input: input, Err: ErrNoEngine}
	}

	result, err := t.call(ctx, input)
	if err != nil {
		var ef *domain.EngineFailure
		if !errors.As(err, &ef) {
			err = &domain.EngineFailure{Input: input, Err: err}
		}
		return "", err
	}

	return render.PrettyAny(result)
}

func (t *Trigger) call(ctx context.Context, input string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.engine.Evaluate(ctx, input)
}

// apply writes the result of cycle seq to the output according to the
// ordering and failure policies.
func (t *Trigger) apply(seq uint64, snapshot, text string, err error) domain.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	outcome := domain.Outcome{Sequence: seq, Input: snapshot, Err: err}

	if t.ordering == domain.OrderLastSubmitted && seq < t.settled {
		outcome.Stale = true
		return outcome
	}

	switch {
	case err == nil:
		t.output.Set(text)
		outcome.Output = text
		outcome.Rendered = true
	case t.policy == domain.FailureMarker:
		marker := domain.ErrorMarker(err)
		t.output.Set(marker)
		outcome.Output = marker
		outcome.Rendered = true
	}

	if seq > t.settled {
		t.settled = seq
	}
	t.last = outcome
	return outcome
}
