package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResultCacheContract runs a suite of tests to verify that a ResultCache implementation
// adheres to the defined interface contract.
func RunResultCacheContract(t *testing.T, cache ResultCache) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Miss", func(t *testing.T) {
		data, ok, err := cache.Get(ctx, key+"-missing")
		require.NoError(t, err, "Get on a miss should not return error")
		assert.False(t, ok)
		assert.Nil(t, data)
	})

	t.Run("Set and Get", func(t *testing.T) {
		err := cache.Set(ctx, key, []byte(`{"a":1}`))
		require.NoError(t, err, "Set should not return error")

		data, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"a":1}`, string(data))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte(`1`)))
		require.NoError(t, cache.Set(ctx, key, []byte(`2`)))

		data, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `2`, string(data))
	})

	t.Run("Empty Key", func(t *testing.T) {
		// The empty input is a valid input and therefore a valid key.
		require.NoError(t, cache.Set(ctx, "", []byte(`{}`)))
		data, ok, err := cache.Get(ctx, "")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{}`, string(data))
	})
}
