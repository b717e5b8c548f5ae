package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutGet(t *testing.T) {
	store := NewCacheStore(t.TempDir(), 3600)

	assert.Nil(t, store.Get("default"))
	assert.Nil(t, store.GetAny("default"))

	payload := []byte(`{"registry_version":"1.0.0","components":[]}`)
	require.NoError(t, store.Put("default", payload, `"abc123"`))

	entry := store.Get("default")
	require.NotNil(t, entry)
	assert.Equal(t, "default", entry.SourceAlias)
	assert.JSONEq(t, string(payload), string(entry.Payload))
	assert.Equal(t, `"abc123"`, entry.ETag)
	assert.Equal(t, int64(len(payload)), entry.SizeBytes)
}

func TestCacheExpiry(t *testing.T) {
	store := NewCacheStore(t.TempDir(), 3600)
	base := time.Now()
	store.now = func() time.Time { return base }

	require.NoError(t, store.Put("default", []byte(`{}`), ""))
	require.NotNil(t, store.Get("default"))

	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Nil(t, store.Get("default"), "expired entry must not be served")
	assert.NotNil(t, store.GetAny("default"), "expired entry stays available for revalidation")
}

func TestCacheTouch(t *testing.T) {
	store := NewCacheStore(t.TempDir(), 60)
	base := time.Now()
	store.now = func() time.Time { return base }

	payload := []byte(`{"registry_version":"1.0.0"}`)
	require.NoError(t, store.Put("default", payload, `"v1"`))

	store.now = func() time.Time { return base.Add(5 * time.Minute) }
	require.NoError(t, store.Touch("default"))

	entry := store.GetAny("default")
	require.NotNil(t, entry)
	assert.JSONEq(t, string(payload), string(entry.Payload))
	assert.True(t, entry.CachedAt.Equal(base), "touch must not reset cached_at")
	assert.True(t, entry.LastAccessed.After(entry.CachedAt))
	assert.True(t, entry.Expired(store.now()), "a touched entry stays expired until a 200 replaces it")
}

func TestCacheInvalidate(t *testing.T) {
	store := NewCacheStore(t.TempDir(), 3600)
	require.NoError(t, store.Put("one", []byte(`{}`), ""))
	require.NoError(t, store.Put("two", []byte(`{}`), ""))

	require.NoError(t, store.Invalidate("one"))
	assert.Nil(t, store.GetAny("one"))
	assert.NotNil(t, store.GetAny("two"))

	require.NoError(t, store.Invalidate(""))
	assert.Nil(t, store.GetAny("two"))

	// invalidating an absent alias or an empty store is not an error
	assert.NoError(t, store.Invalidate("one"))
	assert.NoError(t, store.Invalidate(""))
}

func TestCacheStats(t *testing.T) {
	store := NewCacheStore(t.TempDir(), 3600)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Empty(t, stats)

	require.NoError(t, store.Put("zeta", []byte(`{"a":1}`), ""))
	require.NoError(t, store.Put("alpha", []byte(`{"b":2}`), ""))

	stats, err = store.Stats()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "alpha", stats[0].Alias)
	assert.Equal(t, "zeta", stats[1].Alias)
	assert.False(t, stats[0].Expired)
	assert.NotEmpty(t, stats[0].Age)
	assert.NotEmpty(t, stats[0].Size)
}
