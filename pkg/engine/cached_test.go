package engine_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/aretw0/harness/pkg/adapters/memory"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/engine"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/aretw0/harness/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingEngine(calls *int, result func(string) (any, error)) ports.ComputationEngine {
	return ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		*calls++
		return result(input)
	})
}

func TestCached_HitSkipsEngine(t *testing.T) {
	calls := 0
	inner := countingEngine(&calls, func(input string) (any, error) {
		return map[string]any{"in": input, "n": 1.5}, nil
	})
	cache := memory.NewCache()
	cached := engine.NewCached(inner, cache)

	first, err := cached.Evaluate(context.Background(), "x")
	require.NoError(t, err)
	second, err := cached.Evaluate(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())

	a, err := render.PrettyAny(first)
	require.NoError(t, err)
	b, err := render.PrettyAny(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCached_KeyOrderSurvives(t *testing.T) {
	ordered := domain.Object(domain.NewOrderedMap().Set("z", domain.Int(1)).Set("a", domain.Int(2)))
	cached := engine.NewCached(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		return ordered, nil
	}), memory.NewCache())

	_, err := cached.Evaluate(context.Background(), "k")
	require.NoError(t, err)
	out, err := cached.Evaluate(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, out.(domain.Value).Fields().Keys())
}

func TestCached_ErrorsAreNotStored(t *testing.T) {
	calls := 0
	inner := countingEngine(&calls, func(string) (any, error) { return nil, errors.New("boom") })
	cache := memory.NewCache()
	cached := engine.NewCached(inner, cache)

	for i := 0; i < 2; i++ {
		_, err := cached.Evaluate(context.Background(), "x")
		assert.Error(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, cache.Len())
}

func TestCached_UnserializablePassesThrough(t *testing.T) {
	cache := memory.NewCache()
	cached := engine.NewCached(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		return math.NaN(), nil
	}), cache)

	out, err := cached.Evaluate(context.Background(), "x")
	require.NoError(t, err)
	_, err = render.PrettyAny(out)
	assert.ErrorIs(t, err, domain.ErrSerializationFailure)
	assert.Equal(t, 0, cache.Len())
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}

func (brokenCache) Set(ctx context.Context, key string, data []byte) error {
	return errors.New("down")
}

func TestCached_BrokenCacheFallsBack(t *testing.T) {
	calls := 0
	inner := countingEngine(&calls, func(input string) (any, error) { return input, nil })
	cached := engine.NewCached(inner, brokenCache{})

	out, err := cached.Evaluate(context.Background(), "x")
	require.NoError(t, err)
	text, err := render.PrettyAny(out)
	require.NoError(t, err)
	assert.Equal(t, `"x"`, text)
}

func TestCached_CorruptEntryIsReevaluated(t *testing.T) {
	cache := memory.NewCache()
	require.NoError(t, cache.Set(context.Background(), "x", []byte("{not json")))

	calls := 0
	cached := engine.NewCached(countingEngine(&calls, func(string) (any, error) { return 7, nil }), cache)
	out, err := cached.Evaluate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	text, err := render.PrettyAny(out)
	require.NoError(t, err)
	assert.Equal(t, "7", text)
}

func TestCached_NamespacesShareOneCache(t *testing.T) {
	cache := memory.NewCache()
	upper := engine.NewCached(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		return "upper", nil
	}), cache, engine.WithCacheNamespace("upper"))
	lower := engine.NewCached(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		return "lower", nil
	}), cache, engine.WithCacheNamespace("lower"))

	_, err := upper.Evaluate(context.Background(), "x")
	require.NoError(t, err)
	out, err := lower.Evaluate(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, "lower", out.(domain.Value).AsString())
	assert.Equal(t, 2, cache.Len())
}
