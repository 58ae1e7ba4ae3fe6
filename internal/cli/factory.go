package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/internal/config"
	"github.com/aretw0/harness/pkg/adapters/memory"
	"github.com/aretw0/harness/pkg/adapters/process"
	"github.com/aretw0/harness/pkg/adapters/redis"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/aretw0/harness/pkg/registry"
)

// NewCache builds the result cache selected by cfg.
// The returned close function is never nil.
func NewCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.ResultCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case config.CacheMemory:
		logger.Debug("Result cache enabled", "backend", config.CacheMemory)
		return memory.NewCache(), noop, nil
	case config.CacheRedis:
		opts := []redis.Option{}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Cache.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Cache.TTL))
		}
		c := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return nil, noop, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Debug("Result cache enabled", "backend", config.CacheRedis, "addr", cfg.Redis.Addr)
		return c, c.Close, nil
	default:
		return nil, noop, nil
	}
}

// HarnessFactory returns a constructor for harnesses configured by cfg.
// Every harness shares cache and hooks.
func HarnessFactory(cfg config.Config, cache ports.ResultCache, hooks domain.LifecycleHooks, logger *slog.Logger) func() (*harness.Harness, error) {
	reg := NewRegistry(cfg)
	return func() (*harness.Harness, error) {
		opts := []harness.Option{
			harness.WithEngineName(cfg.Engine),
			harness.WithRegistry(reg),
			harness.WithFailurePolicy(cfg.Policy()),
			harness.WithOrdering(cfg.Order()),
			harness.WithLifecycleHooks(hooks),
			harness.WithLogger(logger),
		}
		if cache != nil {
			opts = append(opts, harness.WithCache(cache), harness.WithCacheNamespace(cacheNamespace(cfg)))
		}
		h, err := harness.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("error initializing harness: %w", err)
		}
		return h, nil
	}
}

// cacheNamespace scopes cached results to the engine, and for the process
// engine to the command line that produced them.
func cacheNamespace(cfg config.Config) string {
	if cfg.Engine != config.EngineProcess {
		return cfg.Engine
	}
	return strings.Join(append([]string{config.EngineProcess, cfg.Process.Command}, cfg.Process.Args...), " ")
}

// NewRegistry returns the built-in engines plus the process engine when one is configured.
func NewRegistry(cfg config.Config) *registry.Registry {
	reg := registry.Default()
	if cfg.Process.Enabled() {
		reg.Register(config.EngineProcess, func() ports.ComputationEngine {
			return process.NewEngine(cfg.Process)
		})
	}
	return reg
}

// debugHooks logs every evaluation at debug level.
func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvaluateStart: func(ctx context.Context, e *domain.EvaluationEvent) {
			logger.Debug("Evaluate Start", "sequence", e.Sequence, "input_bytes", len(e.Input))
		},
		OnEvaluateDone: func(ctx context.Context, e *domain.EvaluationEvent) {
			if e.Err != nil {
				logger.Debug("Evaluate Done (Error)", "sequence", e.Sequence, "err", e.Err, "duration", e.Duration)
			} else {
				logger.Debug("Evaluate Done (Success)", "sequence", e.Sequence, "stale", e.Stale, "duration", e.Duration)
			}
		},
	}
}
