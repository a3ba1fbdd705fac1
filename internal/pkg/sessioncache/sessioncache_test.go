package sessioncache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)

func TestMemoryCacheProfileLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Save(ctx, &models.Profile{ID: "u1", FullName: "Ama"}))
	require.NoError(t, cache.Touch(ctx))

	entry, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ama", entry.Profile.FullName)
	assert.Equal(t, 3*time.Minute, entry.Age(now.Add(3*time.Minute)))

	require.NoError(t, cache.Clear(ctx))
	_, ok, _ = cache.Load(ctx)
	assert.False(t, ok)
	_, ok, _ = cache.TouchedAt(ctx)
	assert.False(t, ok)
}

func TestMemoryCacheSessionIsIndependentOfProfile(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	require.NoError(t, cache.SaveSession(ctx, &platform.Session{ID: "s1"}))
	require.NoError(t, cache.Save(ctx, &models.Profile{ID: "u1"}))

	require.NoError(t, cache.Clear(ctx))
	session, err := cache.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "s1", session.ID)

	require.NoError(t, cache.ClearSession(ctx))
	session, err = cache.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSeedKeepsTimestamp(t *testing.T) {
	cache := NewMemoryCache()
	stale := time.Now().Add(-time.Hour)
	cache.Seed(Entry{Profile: models.Profile{ID: "u1"}, CachedAt: stale})
	entry, ok, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, entry.Age(time.Now()) > FallbackFor)
}
