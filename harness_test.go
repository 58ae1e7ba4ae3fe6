package harness_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/pkg/adapters/memory"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresEngine(t *testing.T) {
	_, err := harness.New()
	assert.ErrorIs(t, err, harness.ErrNoEngine)

	_, err = harness.New(harness.WithEngineName("nope"))
	assert.ErrorIs(t, err, domain.ErrUnknownEngine)
}

func TestNew_InvalidPolicy(t *testing.T) {
	_, err := harness.New(harness.WithEngineName("echo"), harness.WithFailurePolicy("ignore"))
	assert.Error(t, err)

	_, err = harness.New(harness.WithEngineName("echo"), harness.WithOrdering("random"))
	assert.Error(t, err)
}

func TestHarness_StartsEmpty(t *testing.T) {
	h, err := harness.New(harness.WithEngineName("echo"))
	require.NoError(t, err)
	assert.Equal(t, "", h.Input())
	assert.Equal(t, "", h.Output())
}

func TestHarness_EditDoesNotEvaluate(t *testing.T) {
	var calls atomic.Int32
	h, err := harness.New(harness.WithEngine(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		calls.Add(1)
		return input, nil
	})))
	require.NoError(t, err)

	h.SetInput("a")
	h.SetInput("ab")
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, "", h.Output())

	_, err = h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, `"ab"`, h.Output())
}

func TestHarness_Evaluator(t *testing.T) {
	h, err := harness.New(harness.WithEngineName("eval"))
	require.NoError(t, err)

	h.SetInput("(defn answer () (* 6 7)) (defn small () (< 1 2))")
	outcome, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Rendered)
	assert.Equal(t, "{\n    \"answer\": 42,\n    \"small\": true\n}", h.Output())
}

func TestHarness_FailureThenRecovery(t *testing.T) {
	h, err := harness.New(harness.WithEngineName("eval"))
	require.NoError(t, err)

	h.SetInput("(+ 1")
	_, err = h.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEngineFailure)
	assert.Contains(t, h.Output(), domain.ErrorMarkerPrefix)
	assert.Equal(t, "(+ 1", h.Input(), "input is untouched by a failure")

	h.SetInput("(+ 1 1)")
	_, err = h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", h.Output())
}

func TestHarness_Subscribe(t *testing.T) {
	h, err := harness.New(harness.WithEngineName("echo"))
	require.NoError(t, err)

	updates, cancel := h.Subscribe()
	defer cancel()

	h.SetInput("x")
	_, err = h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `"x"`, <-updates)
}

func TestHarness_CacheMemoises(t *testing.T) {
	var calls atomic.Int32
	engine := ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		calls.Add(1)
		return map[string]any{"len": len(input)}, nil
	})
	h, err := harness.New(harness.WithEngine(engine), harness.WithCache(memory.NewCache()))
	require.NoError(t, err)

	h.SetInput("abc")
	for i := 0; i < 3; i++ {
		_, err := h.Run(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "{\n    \"len\": 3\n}", h.Output())
}

func TestHarness_CacheIsScopedByEngine(t *testing.T) {
	cache := memory.NewCache()
	eval, err := harness.New(harness.WithEngineName("eval"), harness.WithCache(cache))
	require.NoError(t, err)
	read, err := harness.New(harness.WithEngineName("read"), harness.WithCache(cache))
	require.NoError(t, err)

	eval.SetInput("(+ 1 2)")
	_, err = eval.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "3", eval.Output())

	read.SetInput("(+ 1 2)")
	_, err = read.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, read.Output(), `"expressions"`)
	assert.Equal(t, 2, cache.Len())
}

func TestHarness_CloneKeepsConfiguration(t *testing.T) {
	var starts atomic.Int32
	h, err := harness.New(
		harness.WithEngine(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
			return nil, errors.New("always fails")
		})),
		harness.WithFailurePolicy(domain.FailureRetain),
		harness.WithLifecycleHooks(domain.LifecycleHooks{
			OnEvaluateStart: func(ctx context.Context, e *domain.EvaluationEvent) { starts.Add(1) },
		}),
	)
	require.NoError(t, err)
	h.SetInput("shared")

	clone, err := h.Clone()
	require.NoError(t, err)
	assert.Equal(t, "", clone.Input(), "buffers are not shared")

	_, err = clone.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "", clone.Output(), "retain policy carried over")
	assert.Equal(t, int32(1), starts.Load(), "hooks carried over")
}

func TestHarness_HooksAndLastOutcome(t *testing.T) {
	var done []domain.EvaluationEvent
	h, err := harness.New(
		harness.WithEngine(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
			return nil, errors.New("always fails")
		})),
		harness.WithFailurePolicy(domain.FailureRetain),
		harness.WithLifecycleHooks(domain.LifecycleHooks{
			OnEvaluateDone: func(ctx context.Context, e *domain.EvaluationEvent) { done = append(done, *e) },
		}),
	)
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.Error(t, err)
	require.Len(t, done, 1)
	assert.Error(t, done[0].Err)
	assert.Equal(t, "", h.Output(), "retain keeps the previous (empty) output")
	assert.Equal(t, uint64(1), h.LastOutcome().Sequence)
}

func TestHarness_RunAsync(t *testing.T) {
	h, err := harness.New(harness.WithEngineName("eval"))
	require.NoError(t, err)

	h.SetInput("(+ 2 2)")
	done := h.RunAsync(context.Background())
	h.SetInput("edited")

	outcome := <-done
	require.NoError(t, outcome.Err)
	assert.Equal(t, "(+ 2 2)", outcome.Input)
	assert.Equal(t, "4", h.Output())
}
