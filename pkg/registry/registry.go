// Package registry resolves computation engines by name.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/engine/sexpr"
	"github.com/aretw0/harness/pkg/ports"
)

// Factory builds a fresh engine instance.
type Factory func() ports.ComputationEngine

// Registry manages the available engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Factory),
	}
}

// Default returns a registry holding the built-in engines: read, eval and echo.
func Default() *Registry {
	r := NewRegistry()
	r.Register("read", func() ports.ComputationEngine { return sexpr.NewReader() })
	r.Register("eval", func() ports.ComputationEngine { return sexpr.NewEvaluator() })
	r.Register("echo", func() ports.ComputationEngine { return Echo() })
	return r
}

// Register adds an engine to the registry.
// If an engine with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = fn
}

// New looks up an engine by name and builds it.
func (r *Registry) New(name string) (ports.ComputationEngine, error) {
	r.mu.RLock()
	fn, ok := r.engines[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEngine, name)
	}
	return fn(), nil
}

// Names lists the registered engines in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Echo returns an engine whose result is its input string.
func Echo() ports.ComputationEngine {
	return ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
		return input, nil
	})
}
