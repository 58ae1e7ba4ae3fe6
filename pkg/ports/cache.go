package ports

import "context"

// ResultCache stores the canonical (compact JSON) form of engine results, keyed by input.
// It is only meaningful for deterministic engines.
type ResultCache interface {
	// Get returns the cached entry and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores an entry.
	Set(ctx context.Context, key string, data []byte) error
}
