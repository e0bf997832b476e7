package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"moodweather/internal/domain"
	"moodweather/internal/metrics"
	"moodweather/internal/repository"

	"go.uber.org/zap"
)

// BadgeNotifier receives first-time unlocks after they are persisted
type BadgeNotifier interface {
	NotifyBadgesUnlocked(ctx context.Context, userID string, badges []domain.Badge) error
}

// StatsAggregator recomputes and persists per-user derived statistics.
// Concurrent recomputes for the same user are not serialized; the last PutStats wins
// for derived fields while the ledger (mindful count, badges) only grows.
type StatsAggregator struct {
	records  repository.MoodRecordsRepository
	stats    repository.UserStatsRepository
	cache    *CacheManager // optional
	notifier BadgeNotifier // optional
	logger   *zap.Logger

	// users whose cached snapshot may be outdated; reads bypass the cache
	dirty sync.Map

	now func() time.Time
}

// NewStatsAggregator cache and notifier may be nil
func NewStatsAggregator(
	records repository.MoodRecordsRepository,
	stats repository.UserStatsRepository,
	cache *CacheManager,
	notifier BadgeNotifier,
	logger *zap.Logger,
) *StatsAggregator {
	return &StatsAggregator{
		records:  records,
		stats:    stats,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides time.Now (tests, replays)
func (a *StatsAggregator) SetClock(now func() time.Time) {
	a.now = now
}

func asStoreErr(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("%w: failed to %s: %w", domain.ErrStoreUnavailable, op, err)
}

// Recompute derives stats from the full record set, merges the prior ledger
// and replaces the stats row. On failure the previous row is left untouched.
func (a *StatsAggregator) Recompute(ctx context.Context, userID string) (*domain.UserStats, error) {
	start := time.Now()
	stats, err := a.recompute(ctx, userID)
	metrics.RecordRecompute(time.Since(start), err)
	return stats, err
}

func (a *StatsAggregator) recompute(ctx context.Context, userID string) (*domain.UserStats, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	records, err := a.records.ListRecords(ctx, userID, nil)
	if err != nil {
		return nil, asStoreErr("list records", err)
	}

	prior, err := a.stats.GetStats(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, asStoreErr("read prior stats", err)
	}
	ledger := prior.Ledger()
	priorBadges := append([]string(nil), ledger.UnlockedBadges...)

	now := a.now()
	derived, signals := Derive(records, ledger.MindfulMomentsCount, now)
	ledger.UnlockedBadges = EvaluateBadges(signals, ledger.UnlockedBadges)

	stats := domain.MergeStats(userID, derived, ledger, now)
	a.dropCache(ctx, userID)
	if err := a.stats.PutStats(ctx, stats); err != nil {
		return nil, asStoreErr("persist stats", err)
	}

	a.logger.Debug("Recomputed user stats",
		zap.String("user_id", userID),
		zap.Int("total_entries", stats.TotalEntries),
		zap.Int("current_streak", stats.CurrentStreak),
		zap.Strings("unlocked_badges", stats.UnlockedBadges),
	)

	a.storeCache(ctx, stats)

	if newly := NewlyUnlocked(priorBadges, stats.UnlockedBadges); len(newly) > 0 {
		a.onBadgesUnlocked(ctx, userID, newly)
	}
	return stats, nil
}

func (a *StatsAggregator) onBadgesUnlocked(ctx context.Context, userID string, ids []string) {
	badges := make([]domain.Badge, 0, len(ids))
	for _, id := range ids {
		metrics.RecordBadgeUnlocked(id)
		if b, ok := BadgeByID(id); ok {
			badges = append(badges, b)
		}
	}
	a.logger.Info("Badges unlocked", zap.String("user_id", userID), zap.Strings("badges", ids))

	if a.notifier == nil || len(badges) == 0 {
		return
	}
	if err := a.notifier.NotifyBadgesUnlocked(ctx, userID, badges); err != nil {
		a.logger.Warn("Failed to notify badge unlock", zap.String("user_id", userID), zap.Error(err))
	}
}

// dropCache removes the snapshot; if Redis refuses, the user is marked dirty
func (a *StatsAggregator) dropCache(ctx context.Context, userID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.InvalidateStats(ctx, userID); err != nil {
		a.dirty.Store(userID, struct{}{})
		a.logger.Warn("Failed to invalidate stats cache", zap.String("user_id", userID), zap.Error(err))
	}
}

func (a *StatsAggregator) storeCache(ctx context.Context, stats *domain.UserStats) {
	if a.cache == nil {
		return
	}
	if err := a.cache.UpdateStatsCache(ctx, stats); err != nil {
		a.logger.Warn("Failed to update stats cache", zap.String("user_id", stats.UserID), zap.Error(err))
		a.dropCache(ctx, stats.UserID)
		return
	}
	a.dirty.Delete(stats.UserID)
}

func (a *StatsAggregator) cacheUsable(userID string) bool {
	if a.cache == nil {
		return false
	}
	_, dirty := a.dirty.Load(userID)
	return !dirty
}

// GetStats plain read: cache first, then store. Returns domain.ErrNotFound when never computed.
func (a *StatsAggregator) GetStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	if a.cacheUsable(userID) {
		cached, err := a.cache.GetStatsCache(ctx, userID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			a.logger.Debug("Stats cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	stats, err := a.stats.GetStats(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, asStoreErr("get stats", err)
	}
	return stats, nil
}

// EnsureFresh recomputes when stats are absent or were computed on an earlier
// UTC day. A failed recompute falls back to the last persisted stats.
func (a *StatsAggregator) EnsureFresh(ctx context.Context, userID string) (*domain.UserStats, error) {
	current, err := a.GetStats(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if current != nil && !current.IsStale(a.now()) {
		return current, nil
	}

	fresh, err := a.Recompute(ctx, userID)
	if err != nil {
		if current != nil {
			a.logger.Warn("Stale stats recompute failed, serving last persisted stats",
				zap.String("user_id", userID),
				zap.Time("last_updated", current.LastUpdated),
				zap.Error(err),
			)
			return current, nil
		}
		return nil, err
	}
	return fresh, nil
}

// IncrementMindfulMoments bumps the counter then recomputes so the badge can unlock.
// If the recompute fails the increment stays persisted and the last stats are returned.
func (a *StatsAggregator) IncrementMindfulMoments(ctx context.Context, userID string) (*domain.UserStats, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	count, err := a.stats.IncrementMindfulMoments(ctx, userID)
	if err != nil {
		return nil, asStoreErr("increment mindful moments", err)
	}
	a.logger.Info("Mindful moment recorded", zap.String("user_id", userID), zap.Int("count", count))

	stats, err := a.Recompute(ctx, userID)
	if err != nil {
		a.logger.Warn("Recompute after mindful moment failed", zap.String("user_id", userID), zap.Error(err))
		a.dropCache(ctx, userID)
		return a.stats.GetStats(ctx, userID)
	}
	return stats, nil
}

// Forget drops persisted stats and the cached snapshot (account erasure)
func (a *StatsAggregator) Forget(ctx context.Context, userID string) error {
	if err := a.stats.DeleteStats(ctx, userID); err != nil {
		return asStoreErr("delete stats", err)
	}
	a.dropCache(ctx, userID)
	return nil
}

// Signals recomputes badge signals for the challenges view without persisting
func (a *StatsAggregator) Signals(ctx context.Context, userID string, stats *domain.UserStats) (BadgeSignals, error) {
	records, err := a.records.ListRecords(ctx, userID, nil)
	if err != nil {
		return BadgeSignals{}, asStoreErr("list records", err)
	}
	_, signals := Derive(records, stats.Ledger().MindfulMomentsCount, a.now())
	return signals, nil
}
