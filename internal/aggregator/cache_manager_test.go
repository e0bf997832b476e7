package aggregator_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	agg "moodweather/internal/aggregator"
	"moodweather/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCacheManager_UpdateStatsCache_WritesJSON(t *testing.T) {
	kv := newFakeKVStore()
	cm := agg.NewCacheManager(kv, time.Minute, zap.NewNop())

	mood := domain.EmojiSunny
	stats := &domain.UserStats{
		UserID:         "user-1",
		TotalEntries:   4,
		DominantMood:   &mood,
		UnlockedBadges: []string{domain.BadgeStoryteller},
	}
	require.NoError(t, cm.UpdateStatsCache(context.Background(), stats))

	raw, err := kv.Get(context.Background(), "moodweather:stats:user-1")
	require.NoError(t, err)

	var decoded domain.UserStats
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, 4, decoded.TotalEntries)
	assert.Equal(t, "sunny", *decoded.DominantMood)

	got, err := cm.GetStatsCache(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.BadgeStoryteller}, got.UnlockedBadges)
}

func TestCacheManager_Miss(t *testing.T) {
	cm := agg.NewCacheManager(newFakeKVStore(), time.Minute, zap.NewNop())
	_, err := cm.GetStatsCache(context.Background(), "nobody")
	assert.True(t, errors.Is(err, agg.ErrCacheMiss))
}

func TestCacheManager_SnapshotExpires(t *testing.T) {
	kv := newFakeKVStore()
	clock := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return clock }
	cm := agg.NewCacheManager(kv, time.Hour, zap.NewNop())

	require.NoError(t, cm.UpdateStatsCache(context.Background(), &domain.UserStats{UserID: "user-1"}))
	_, err := cm.GetStatsCache(context.Background(), "user-1")
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	_, err = cm.GetStatsCache(context.Background(), "user-1")
	assert.True(t, errors.Is(err, agg.ErrCacheMiss))
}

func TestCacheManager_BackendFailureIsNotAMiss(t *testing.T) {
	kv := newFakeKVStore()
	kv.failErr = errors.New("connection refused")
	cm := agg.NewCacheManager(kv, time.Minute, zap.NewNop())

	_, err := cm.GetStatsCache(context.Background(), "user-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, agg.ErrCacheMiss))

	assert.Error(t, cm.UpdateStatsCache(context.Background(), &domain.UserStats{UserID: "user-1"}))
	assert.Error(t, cm.InvalidateStats(context.Background(), "user-1"))
}

func TestRedisKVStore_WithMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	kv := agg.NewRedisKVStore(client)
	ctx := context.Background()

	_, err := kv.Get(ctx, "k")
	assert.True(t, errors.Is(err, agg.ErrCacheMiss))

	require.NoError(t, kv.Set(ctx, "k", "v", 10*time.Second))
	v, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	mr.FastForward(11 * time.Second)
	_, err = kv.Get(ctx, "k")
	assert.True(t, errors.Is(err, agg.ErrCacheMiss))

	require.NoError(t, kv.Set(ctx, "a", "1", 0))
	require.NoError(t, kv.Delete(ctx, "a"))
	_, err = kv.Get(ctx, "a")
	assert.True(t, errors.Is(err, agg.ErrCacheMiss))
	require.NoError(t, kv.Delete(ctx))
}

func TestRedisKVStore_DeletePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	kv := agg.NewRedisKVStore(client)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, kv.Set(ctx, fmt.Sprintf("moodweather:weather:%d", i), "{}", 0))
	}
	require.NoError(t, kv.Set(ctx, agg.StatsKey("user-1"), "{}", 0))

	n, err := kv.DeletePrefix(ctx, "moodweather:weather:")
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Equal(t, []string{agg.StatsKey("user-1")}, mr.Keys())
}
