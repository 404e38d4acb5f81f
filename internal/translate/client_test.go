package translate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTranslator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTranslator) Translate(_ context.Context, text, _, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return "[en] " + text, nil
}

func TestCachedTranslatorHitsOnSecondCall(t *testing.T) {
	inner := &countingTranslator{}
	c, err := NewCached(inner, 1<<20)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	out1, err := c.Translate(ctx, "El horno no funciona.", "es", "en", "t1")
	require.NoError(t, err)
	out2, err := c.Translate(ctx, "El horno no funciona.", "es", "en", "t1")
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.Equal(t, 1, inner.calls, "identical chunk must be served from cache")

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCacheKeyScopedByTenantAndLangs(t *testing.T) {
	inner := &countingTranslator{}
	c, err := NewCached(inner, 1<<20)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, err = c.Translate(ctx, "hola", "es", "en", "t1")
	require.NoError(t, err)
	_, err = c.Translate(ctx, "hola", "es", "en", "t2")
	require.NoError(t, err)
	_, err = c.Translate(ctx, "hola", "es", "fr", "t1")
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls, "tenant and language pair partition the cache")
}

func TestSameLanguagePassesThrough(t *testing.T) {
	inner := &countingTranslator{}
	c, err := NewCached(inner, 1<<20)
	require.NoError(t, err)
	defer c.Close()

	out, err := c.Translate(context.Background(), "hola", "es", "es", "t1")
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
	assert.Equal(t, 0, inner.calls)
}
