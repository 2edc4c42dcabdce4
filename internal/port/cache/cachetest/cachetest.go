// Package cachetest holds a behavioural suite shared by cache adapters.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/standardhub/internal/port/cache"
)

// Run exercises c against the cache.Cache contract. settle is called after
// every write for adapters whose writes are applied asynchronously.
func Run(t *testing.T, c cache.Cache, settle func()) {
	t.Helper()
	ctx := context.Background()
	if settle == nil {
		settle = func() {}
	}

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "coding_rule:1", []byte(`{"id":1}`), time.Minute))
		settle()
		val, found, err := c.Get(ctx, "coding_rule:1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, `{"id":1}`, string(val))
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "coding_rule:404")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "rule_example:2", []byte("x"), time.Minute))
		settle()
		require.NoError(t, c.Delete(ctx, "rule_example:2"))
		_, found, err := c.Get(ctx, "rule_example:2")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		assert.NoError(t, c.Delete(ctx, "never-existed"))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "class_template:3", []byte("v1"), time.Minute))
		settle()
		require.NoError(t, c.Set(ctx, "class_template:3", []byte("v2"), time.Minute))
		settle()
		val, found, err := c.Get(ctx, "class_template:3")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "v2", string(val))
	})
}
