package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"moodweather/internal/domain"

	"go.uber.org/zap"
)

// CacheManager Redis snapshot cache for user stats
type CacheManager struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCacheManager ttl <= 0 disables expiry
func NewCacheManager(kv KVStore, ttl time.Duration, logger *zap.Logger) *CacheManager {
	return &CacheManager{
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

// StatsKey moodweather:stats:{userId}
func StatsKey(userID string) string {
	return fmt.Sprintf("moodweather:stats:%s", userID)
}

// UpdateStatsCache writes the JSON snapshot
func (c *CacheManager) UpdateStatsCache(ctx context.Context, stats *domain.UserStats) error {
	key := StatsKey(stats.UserID)

	jsonData, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal user stats: %w", err)
	}
	if err := c.kv.Set(ctx, key, string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	c.logger.Debug("Updated stats cache",
		zap.String("user_id", stats.UserID),
		zap.String("key", key),
	)
	return nil
}

// GetStatsCache returns ErrCacheMiss when absent
func (c *CacheManager) GetStatsCache(ctx context.Context, userID string) (*domain.UserStats, error) {
	raw, err := c.kv.Get(ctx, StatsKey(userID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var stats domain.UserStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached stats: %w", err)
	}
	if stats.UnlockedBadges == nil {
		stats.UnlockedBadges = []string{}
	}
	return &stats, nil
}

// InvalidateStats drops the snapshot
func (c *CacheManager) InvalidateStats(ctx context.Context, userID string) error {
	if err := c.kv.Delete(ctx, StatsKey(userID)); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}
