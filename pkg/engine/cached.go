// Package engine holds decorators shared by every computation engine.
package engine

import (
	"context"
	"log/slog"

	"github.com/aretw0/harness/internal/logging"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/aretw0/harness/pkg/render"
)

// Cached memoises a deterministic engine by input.
// Keys are scoped by namespace so engines sharing one cache never see each
// other's results. Entries hold the compact JSON of the result. Only successful results are
// stored. A failing cache never fails the evaluation: the error is logged and
// the inner engine is used.
type Cached struct {
	inner     ports.ComputationEngine
	cache     ports.ResultCache
	namespace string
	logger    *slog.Logger
}

type CachedOption func(*Cached)

// WithCacheLogger sets the logger for cache errors.
func WithCacheLogger(logger *slog.Logger) CachedOption {
	return func(c *Cached) {
		c.logger = logger
	}
}

// WithCacheNamespace scopes cache keys, usually to the engine name.
func WithCacheNamespace(ns string) CachedOption {
	return func(c *Cached) {
		c.namespace = ns
	}
}

// NewCached wraps inner with cache.
func NewCached(inner ports.ComputationEngine, cache ports.ResultCache, opts ...CachedOption) *Cached {
	c := &Cached{
		inner:  inner,
		cache:  cache,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate returns the cached result for input, or evaluates and stores it.
func (c *Cached) Evaluate(ctx context.Context, input string) (any, error) {
	key := c.key(input)
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "error", err)
	}
	if ok {
		v, err := domain.ParseJSON(data)
		if err == nil {
			c.logger.Debug("cache hit", "bytes", len(data))
			return v, nil
		}
		c.logger.Warn("discarding corrupt cache entry", "error", err)
	}

	result, err := c.inner.Evaluate(ctx, input)
	if err != nil {
		return nil, err
	}

	v, err := domain.FromAny(result)
	if err != nil {
		// let the caller report the serialization failure
		return result, nil
	}
	text, err := render.Compact(v)
	if err != nil {
		return result, nil
	}
	if err := c.cache.Set(ctx, key, []byte(text)); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
	return v, nil
}

func (c *Cached) key(input string) string {
	if c.namespace == "" {
		return input
	}
	return c.namespace + "\x00" + input
}
