package ports

import "context"

// ComputationEngine is the single external collaborator of the harness.
//
// Evaluate maps an input string (possibly empty) to any JSON-serializable value,
// or fails. Implementations may do their work asynchronously; the harness waits
// for Evaluate to return. The context is forwarded for host shutdown only: the
// harness never cancels an evaluation it has started.
type ComputationEngine interface {
	Evaluate(ctx context.Context, input string) (any, error)
}

// EngineFunc adapts an ordinary function to the ComputationEngine interface.
type EngineFunc func(ctx context.Context, input string) (any, error)

// Evaluate calls f(ctx, input).
func (f EngineFunc) Evaluate(ctx context.Context, input string) (any, error) {
	return f(ctx, input)
}
