package aggregator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	agg "moodweather/internal/aggregator"
	"moodweather/internal/domain"
	"moodweather/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyStore MemoryStore with switchable failures
type flakyStore struct {
	*repository.MemoryStore
	failPut  bool
	failList bool
}

func (f *flakyStore) PutStats(ctx context.Context, s *domain.UserStats) error {
	if f.failPut {
		return errors.New("write timeout")
	}
	return f.MemoryStore.PutStats(ctx, s)
}

func (f *flakyStore) ListRecords(ctx context.Context, userID string, filter *repository.RecordFilter) ([]*domain.MoodRecord, error) {
	if f.failList {
		return nil, errors.New("connection reset")
	}
	return f.MemoryStore.ListRecords(ctx, userID, filter)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyBadgesUnlocked(ctx context.Context, userID string, badges []domain.Badge) error {
	args := m.Called(ctx, userID, badges)
	return args.Error(0)
}

func newTestAggregator(t *testing.T, notifier agg.BadgeNotifier) (*agg.StatsAggregator, *flakyStore, *fakeKV) {
	t.Helper()
	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	kv := newFakeKVStore()
	cache := agg.NewCacheManager(kv, time.Hour, zap.NewNop())
	a := agg.NewStatsAggregator(store, store, cache, notifier, zap.NewNop())
	a.SetClock(func() time.Time { return today })
	return a, store, kv
}

func addRecord(t *testing.T, store *flakyStore, ts time.Time, intensity int, note string, emojis ...string) {
	t.Helper()
	r := rec(ts, intensity, emojis...)
	if note != "" {
		r.Note = &note
	}
	require.NoError(t, store.CreateRecord(context.Background(), r))
}

func TestRecompute_FullPipeline(t *testing.T) {
	a, store, _ := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(2), 20, "", domain.EmojiRainy)
	addRecord(t, store, daysAgo(1), 60, "long walk", domain.EmojiSunny, domain.EmojiPartly)
	addRecord(t, store, daysAgo(0), 100, "", domain.EmojiSunny)

	stats, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
	assert.Equal(t, 60.0, stats.AverageIntensity)
	require.NotNil(t, stats.DominantMood)
	assert.Equal(t, domain.EmojiSunny, *stats.DominantMood)
	assert.Equal(t, []string{domain.BadgeStoryteller, domain.BadgeWeatherMixologist}, stats.UnlockedBadges)
	assert.Equal(t, today, stats.LastUpdated)

	persisted, err := store.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, stats.TotalEntries, persisted.TotalEntries)
}

func TestRecompute_DeleteAllKeepsLedger(t *testing.T) {
	a, store, _ := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(0), 70, "journal", domain.EmojiSunny, domain.EmojiCloudy)
	_, err := store.IncrementMindfulMoments(ctx, "user-1")
	require.NoError(t, err)
	before, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, before.UnlockedBadges)

	_, err = store.DeleteAllRecords(ctx, "user-1")
	require.NoError(t, err)

	after, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, after.TotalEntries)
	assert.Equal(t, 0, after.CurrentStreak)
	assert.Equal(t, 0, after.LongestStreak)
	assert.Nil(t, after.DominantMood)
	assert.Equal(t, before.UnlockedBadges, after.UnlockedBadges)
	assert.Equal(t, before.MindfulMomentsCount, after.MindfulMomentsCount)
}

func TestRecompute_EmptyStillEvaluatesBadges(t *testing.T) {
	a, store, _ := newTestAggregator(t, nil)
	ctx := context.Background()

	_, err := store.IncrementMindfulMoments(ctx, "user-1")
	require.NoError(t, err)

	stats, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, []string{domain.BadgeMindfulMoment}, stats.UnlockedBadges)
}

func TestRecompute_StoreFailureLeavesPriorStats(t *testing.T) {
	a, store, _ := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(0), 40, "", domain.EmojiCloudy)
	prior, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	addRecord(t, store, daysAgo(1), 90, "", domain.EmojiSunny)
	store.failPut = true
	_, err = a.Recompute(ctx, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	persisted, err := store.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, prior.TotalEntries, persisted.TotalEntries)
	assert.Equal(t, prior.AverageIntensity, persisted.AverageIntensity)

	store.failPut = false
	store.failList = true
	_, err = a.Recompute(ctx, "user-1")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestRecompute_NotifiesOnlyNewUnlocks(t *testing.T) {
	notifier := new(MockNotifier)
	a, store, _ := newTestAggregator(t, notifier)
	ctx := context.Background()

	storyteller, _ := agg.BadgeByID(domain.BadgeStoryteller)
	notifier.On("NotifyBadgesUnlocked", mock.Anything, "user-1", []domain.Badge{storyteller}).Return(nil).Once()

	addRecord(t, store, daysAgo(0), 40, "first note", domain.EmojiCloudy)
	_, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	// nothing new the second time
	_, err = a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	notifier.AssertExpectations(t)
}

func TestRecompute_NotifierFailureIsNotFatal(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("NotifyBadgesUnlocked", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	a, store, _ := newTestAggregator(t, notifier)

	addRecord(t, store, daysAgo(0), 40, "note", domain.EmojiCloudy)
	stats, err := a.Recompute(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Contains(t, stats.UnlockedBadges, domain.BadgeStoryteller)
}

func TestGetStats_CacheFirst(t *testing.T) {
	a, store, kv := newTestAggregator(t, nil)
	ctx := context.Background()

	_, err := a.GetStats(ctx, "user-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	addRecord(t, store, daysAgo(0), 40, "", domain.EmojiCloudy)
	_, err = a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	_, err = kv.Get(ctx, agg.StatsKey("user-1"))
	require.NoError(t, err, "recompute refreshes the snapshot")

	// snapshot wins over store
	require.NoError(t, store.DeleteStats(ctx, "user-1"))
	cached, err := a.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalEntries)
}

func TestGetStats_CacheWriteFailureFallsBackToStore(t *testing.T) {
	a, store, kv := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(0), 10, "", domain.EmojiRainy)
	_, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	kv.setFailWrites(errors.New("READONLY replica"))
	addRecord(t, store, daysAgo(0), 90, "", domain.EmojiSunny)
	recomputed, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, recomputed.TotalEntries)

	// the old snapshot is still readable but must not be served
	_, err = kv.Get(ctx, agg.StatsKey("user-1"))
	require.NoError(t, err)

	got, err := a.EnsureFresh(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalEntries)
	assert.Equal(t, 50.0, got.AverageIntensity)

	got, err = a.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalEntries)

	// once a write lands the cache is trusted again
	kv.setFailWrites(nil)
	_, err = a.Recompute(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, store.DeleteStats(ctx, "user-1"))
	cached, err := a.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cached.TotalEntries)
}

func TestRecompute_DropsSnapshotBeforePersisting(t *testing.T) {
	a, store, kv := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(0), 10, "", domain.EmojiRainy)
	_, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	addRecord(t, store, daysAgo(0), 90, "", domain.EmojiSunny)
	store.failPut = true
	_, err = a.Recompute(ctx, "user-1")
	require.Error(t, err)

	_, err = kv.Get(ctx, agg.StatsKey("user-1"))
	assert.True(t, errors.Is(err, agg.ErrCacheMiss))
}

func TestEnsureFresh_RecomputesStaleStats(t *testing.T) {
	a, store, kv := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(3), 40, "", domain.EmojiCloudy)
	addRecord(t, store, daysAgo(2), 40, "", domain.EmojiCloudy)
	addRecord(t, store, daysAgo(1), 40, "", domain.EmojiCloudy)

	// computed on the day of the last entry
	a.SetClock(func() time.Time { return daysAgo(1) })
	old, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, old.CurrentStreak)

	// two days after the last entry the streak has expired without any mutation
	a.SetClock(func() time.Time { return today.AddDate(0, 0, 1) })
	fresh, err := a.EnsureFresh(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.CurrentStreak)
	assert.Equal(t, 3, fresh.LongestStreak)

	// fresh stats are returned without recompute
	require.NoError(t, kv.Delete(ctx, agg.StatsKey("user-1")))
	store.failList = true
	same, err := a.EnsureFresh(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, fresh.LastUpdated, same.LastUpdated)
}

func TestEnsureFresh_DegradesToLastPersisted(t *testing.T) {
	a, store, _ := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(1), 40, "", domain.EmojiCloudy)
	a.SetClock(func() time.Time { return daysAgo(1) })
	old, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	a.SetClock(func() time.Time { return today })
	store.failPut = true
	got, err := a.EnsureFresh(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, old.LastUpdated, got.LastUpdated)
}

func TestEnsureFresh_AbsentStatsAndFailure(t *testing.T) {
	a, store, _ := newTestAggregator(t, nil)
	store.failList = true
	_, err := a.EnsureFresh(context.Background(), "user-1")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestIncrementMindfulMoments_UnlocksBadge(t *testing.T) {
	a, _, _ := newTestAggregator(t, nil)
	ctx := context.Background()

	stats, err := a.IncrementMindfulMoments(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MindfulMomentsCount)
	assert.Equal(t, []string{domain.BadgeMindfulMoment}, stats.UnlockedBadges)

	stats, err = a.IncrementMindfulMoments(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MindfulMomentsCount)
	assert.Equal(t, []string{domain.BadgeMindfulMoment}, stats.UnlockedBadges)
}

func TestForget_DropsStatsAndCache(t *testing.T) {
	a, store, kv := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(0), 40, "", domain.EmojiCloudy)
	_, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, a.Forget(ctx, "user-1"))
	_, err = kv.Get(ctx, agg.StatsKey("user-1"))
	assert.True(t, errors.Is(err, agg.ErrCacheMiss))
	_, err = a.GetStats(ctx, "user-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSignals_FromRecords(t *testing.T) {
	a, store, _ := newTestAggregator(t, nil)
	ctx := context.Background()

	addRecord(t, store, daysAgo(0), 40, "note", domain.EmojiCloudy, domain.EmojiRainy)
	stats, err := a.Recompute(ctx, "user-1")
	require.NoError(t, err)

	signals, err := a.Signals(ctx, "user-1", stats)
	require.NoError(t, err)
	assert.True(t, signals.HasNoteEver)
	assert.True(t, signals.HasMultiEmojiEver)
	assert.Equal(t, 1, signals.CurrentStreak)
}
