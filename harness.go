package harness

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/harness/internal/logging"
	"github.com/aretw0/harness/internal/runtime"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/engine"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/aretw0/harness/pkg/registry"
	"github.com/aretw0/harness/pkg/state"
)

// Version is the release of the harness.
const Version = "0.4.0"

// ErrNoEngine is returned by New when neither an engine nor an engine name is given.
var ErrNoEngine = runtime.ErrNoEngine

// Harness is the high-level entry point of the library.
// It owns one input buffer, one output buffer and the trigger between them.
type Harness struct {
	input   *state.Input
	output  *state.Output
	trigger *runtime.Trigger

	engine     ports.ComputationEngine
	engineName string
	registry   *registry.Registry
	cache      ports.ResultCache
	cacheNS    string
	hooks      domain.LifecycleHooks
	policy     domain.FailurePolicy
	ordering   domain.Ordering
	logger     *slog.Logger
}

// Option defines a functional option for configuring the Harness.
type Option func(*Harness)

// WithEngine sets the computation engine.
func WithEngine(e ports.ComputationEngine) Option {
	return func(h *Harness) {
		h.engine = e
	}
}

// WithEngineName selects a registered engine by name (read, eval, echo).
// It is ignored when WithEngine is also given.
func WithEngineName(name string) Option {
	return func(h *Harness) {
		h.engineName = name
	}
}

// WithRegistry sets the registry used to resolve WithEngineName.
func WithRegistry(r *registry.Registry) Option {
	return func(h *Harness) {
		h.registry = r
	}
}

// WithCache memoises engine results by input.
// Only use it with deterministic engines.
func WithCache(c ports.ResultCache) Option {
	return func(h *Harness) {
		h.cache = c
	}
}

// WithCacheNamespace overrides the cache key scope.
// It defaults to the engine name, or "custom" for engines given with WithEngine.
func WithCacheNamespace(ns string) Option {
	return func(h *Harness) {
		h.cacheNS = ns
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Harness) {
		h.hooks = hooks
	}
}

// WithFailurePolicy sets what the output shows after a failed evaluation.
func WithFailurePolicy(p domain.FailurePolicy) Option {
	return func(h *Harness) {
		h.policy = p
	}
}

// WithOrdering sets how overlapping evaluations are resolved.
func WithOrdering(o domain.Ordering) Option {
	return func(h *Harness) {
		h.ordering = o
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a Harness with empty input and output.
func New(opts ...Option) (*Harness, error) {
	h := &Harness{
		policy:   domain.FailureMarker,
		ordering: domain.OrderLastSubmitted,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = logging.NewNop()
	}

	if h.engine == nil {
		if h.engineName == "" {
			return nil, ErrNoEngine
		}
		if h.registry == nil {
			h.registry = registry.Default()
		}
		e, err := h.registry.New(h.engineName)
		if err != nil {
			return nil, err
		}
		h.engine = e
		h.logger = h.logger.With("engine", h.engineName)
		h.cacheNS = cmp.Or(h.cacheNS, h.engineName)
	}

	if h.cache != nil {
		h.engine = engine.NewCached(h.engine, h.cache,
			engine.WithCacheNamespace(cmp.Or(h.cacheNS, "custom")),
			engine.WithCacheLogger(h.logger),
		)
	}

	if _, err := domain.ParseFailurePolicy(string(h.policy)); err != nil {
		return nil, fmt.Errorf("invalid option: %w", err)
	}
	if _, err := domain.ParseOrdering(string(h.ordering)); err != nil {
		return nil, fmt.Errorf("invalid option: %w", err)
	}

	h.input = state.NewInput()
	h.output = state.NewOutput()
	h.trigger = runtime.NewTrigger(h.input, h.output, h.engine,
		runtime.WithFailurePolicy(h.policy),
		runtime.WithOrdering(h.ordering),
		runtime.WithLifecycleHooks(h.hooks),
		runtime.WithLogger(h.logger),
	)
	return h, nil
}

// SetInput replaces the input text verbatim.
func (h *Harness) SetInput(text string) {
	h.input.Set(text)
}

// Input returns the current input text.
func (h *Harness) Input() string {
	return h.input.Get()
}

// Output returns the currently rendered text.
func (h *Harness) Output() string {
	return h.output.Get()
}

// Run evaluates a snapshot of the input and renders the result.
// Failures are returned and also recorded in the Outcome.
func (h *Harness) Run(ctx context.Context) (domain.Outcome, error) {
	return h.trigger.Run(ctx)
}

// RunAsync is Run on a separate goroutine. The input is snapshotted before it returns.
func (h *Harness) RunAsync(ctx context.Context) <-chan domain.Outcome {
	return h.trigger.RunAsync(ctx)
}

// Subscribe observes output replacements until cancel is called.
func (h *Harness) Subscribe() (<-chan string, func()) {
	return h.output.Subscribe()
}

// LastOutcome returns the outcome of the most recently completed Run.
func (h *Harness) LastOutcome() domain.Outcome {
	return h.trigger.LastOutcome()
}

// Clone returns a harness with empty buffers that shares this harness's
// engine and configuration.
func (h *Harness) Clone() (*Harness, error) {
	return New(
		WithEngine(h.engine),
		WithFailurePolicy(h.policy),
		WithOrdering(h.ordering),
		WithLifecycleHooks(h.hooks),
		WithLogger(h.logger),
	)
}

// Engine returns the engine in use, after any cache wrapping.
func (h *Harness) Engine() ports.ComputationEngine {
	return h.engine
}
