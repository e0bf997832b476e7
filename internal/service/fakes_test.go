package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moodweather/internal/aggregator"
	"moodweather/internal/domain"
	"moodweather/internal/repository"

	"go.uber.org/zap"
)

var now = time.Date(2026, 10, 17, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

// countingRecomputer counts recomputes per user on top of the real aggregator
type countingRecomputer struct {
	*aggregator.StatsAggregator
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingRecomputer) Recompute(ctx context.Context, userID string) (*domain.UserStats, error) {
	c.mu.Lock()
	c.calls[userID]++
	c.mu.Unlock()
	return c.StatsAggregator.Recompute(ctx, userID)
}

func (c *countingRecomputer) count(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[userID]
}

// memKV map-backed KV
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", aggregator.ErrCacheMiss
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// slowStore blocks FindRecordByTimestamp for one timestamp until the caller's deadline
type slowStore struct {
	*repository.MemoryStore
	blockAt time.Time
}

func (s *slowStore) FindRecordByTimestamp(ctx context.Context, userID string, ts time.Time) (*domain.MoodRecord, error) {
	if ts.Equal(s.blockAt) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.MemoryStore.FindRecordByTimestamp(ctx, userID, ts)
}

type testEnv struct {
	store      *slowStore
	aggregator *aggregator.StatsAggregator
	recomputer *countingRecomputer
	moods      *MoodService
	kv         *memKV
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := &slowStore{MemoryStore: repository.NewMemoryStore()}
	agg := aggregator.NewStatsAggregator(store, store, nil, nil, zap.NewNop())
	agg.SetClock(fixedClock)
	rc := &countingRecomputer{StatsAggregator: agg, calls: map[string]int{}}

	moods := NewMoodService(store, rc, nil, zap.NewNop())
	moods.SetClock(fixedClock)
	return &testEnv{
		store:      store,
		aggregator: agg,
		recomputer: rc,
		moods:      moods,
		kv:         newMemKV(),
	}
}

func (e *testEnv) syncService(maxBatch int, itemTimeout time.Duration) *SyncService {
	return NewSyncService(e.moods, e.store, e.aggregator, e.kv, maxBatch, itemTimeout, zap.NewNop())
}

func strPtr(s string) *string { return &s }

var errBoom = errors.New("boom")
