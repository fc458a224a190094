package tvdb

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/tvcatalog/httpcache"
)

// cachedClient builds a client whose requests go through a caching
// transport over store, with the transport doubling as the cache probe.
func cachedClient(t *testing.T, f *fakeTVDB, store httpcache.Store, opts ...Option) *Client {
	t.Helper()

	tr := httpcache.NewTransport(store, CacheKey, httpcache.WithBase(f.server.Client().Transport))
	return f.client(t, append([]Option{
		WithHTTPClient(&http.Client{Transport: tr}),
		WithCacheProbe(tr),
	}, opts...)...)
}

func TestCachedResponsesSkipLogin(t *testing.T) {
	f := scrubsServer(t)

	store, err := httpcache.NewBoltStore(filepath.Join(t.TempDir(), "cache.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()

	warm := cachedClient(t, f, store)
	_, err = warm.Get(ctx, "scrubs")
	require.NoError(t, err)
	assert.Equal(t, 1, f.loginCount())
	assert.Equal(t, 2, f.count("/series/76156/episodes"))

	// A fresh client answers everything from the store and never logs in.
	cold := cachedClient(t, f, store)
	series, err := cold.Get(ctx, "scrubs")
	require.NoError(t, err)
	assert.Equal(t, "Scrubs", series.Name())
	assert.Equal(t, 1, f.loginCount())
	assert.Equal(t, 1, f.count("/search/series"))
	assert.Equal(t, 1, f.count("/series/76156"))
	assert.Equal(t, 2, f.count("/series/76156/episodes"))
	assert.False(t, cold.auth.isAuthorized())
}

func TestCacheMissStillLogsIn(t *testing.T) {
	f := scrubsServer(t)
	store := httpcache.NewMemoryStore()
	ctx := context.Background()

	warm := cachedClient(t, f, store)
	_, err := warm.Search(ctx, "scrubs")
	require.NoError(t, err)

	// Languages was never fetched, so the second client has to log in.
	cold := cachedClient(t, f, store)
	_, err = cold.Languages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.loginCount())
	assert.True(t, cold.auth.isAuthorized())
}

func TestCachePerLanguage(t *testing.T) {
	f := scrubsServer(t)
	store := httpcache.NewMemoryStore()
	ctx := context.Background()

	_, err := cachedClient(t, f, store).Search(ctx, "scrubs")
	require.NoError(t, err)

	_, err = cachedClient(t, f, store).Search(ctx, "scrubs")
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("/search/series"))

	_, err = cachedClient(t, f, store, WithLanguage("de")).Search(ctx, "scrubs")
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("/search/series"))
}
