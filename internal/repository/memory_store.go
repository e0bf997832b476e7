package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"moodweather/internal/domain"
)

// MemoryStore in-process records + stats, used when DB_ENABLED=false and in tests.
// - partitioned by user_id
// - values are copied in and out so callers never share memory with the store
type MemoryStore struct {
	mu sync.RWMutex

	records map[string]map[string]*domain.MoodRecord // userID -> entryID -> record
	stats   map[string]*domain.UserStats             // userID -> stats

	now func() time.Time
}

// NewMemoryStore empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string]map[string]*domain.MoodRecord{},
		stats:   map[string]*domain.UserStats{},
		now:     time.Now,
	}
}

var (
	_ MoodRecordsRepository = (*MemoryStore)(nil)
	_ UserStatsRepository   = (*MemoryStore)(nil)
)

func cloneRecord(r *domain.MoodRecord) *domain.MoodRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Emojis = append([]string(nil), r.Emojis...)
	if r.Note != nil {
		n := *r.Note
		c.Note = &n
	}
	if r.Location != nil {
		l := *r.Location
		c.Location = &l
	}
	if r.ExternalWeather != nil {
		w := *r.ExternalWeather
		c.ExternalWeather = &w
	}
	if r.ClientTimestamp != nil {
		ts := *r.ClientTimestamp
		c.ClientTimestamp = &ts
	}
	return &c
}

func cloneStats(s *domain.UserStats) *domain.UserStats {
	if s == nil {
		return nil
	}
	c := *s
	c.UnlockedBadges = append([]string{}, s.UnlockedBadges...)
	if s.DominantMood != nil {
		d := *s.DominantMood
		c.DominantMood = &d
	}
	return &c
}

// ---- records ----

func (m *MemoryStore) ListRecords(_ context.Context, userID string, filter *RecordFilter) ([]*domain.MoodRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.MoodRecord, 0, len(m.records[userID]))
	for _, r := range m.records[userID] {
		if filter.Matches(r.Timestamp) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *MemoryStore) GetRecord(_ context.Context, userID, entryID string) (*domain.MoodRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[userID][entryID]
	if !ok {
		return nil, fmt.Errorf("%w: mood record %s", domain.ErrNotFound, entryID)
	}
	return cloneRecord(r), nil
}

func (m *MemoryStore) FindRecordByTimestamp(_ context.Context, userID string, ts time.Time) (*domain.MoodRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *domain.MoodRecord
	for _, r := range m.records[userID] {
		if !r.Timestamp.Equal(ts) {
			continue
		}
		if found == nil || r.CreatedAt.Before(found.CreatedAt) {
			found = r
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no mood record at %s", domain.ErrNotFound, ts.UTC().Format(time.RFC3339Nano))
	}
	return cloneRecord(found), nil
}

func (m *MemoryStore) CreateRecord(_ context.Context, rec *domain.MoodRecord) error {
	if rec == nil || rec.UserID == "" || rec.EntryID == "" {
		return fmt.Errorf("%w: user_id and entry_id are required", domain.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.records[rec.UserID] == nil {
		m.records[rec.UserID] = map[string]*domain.MoodRecord{}
	}
	if _, exists := m.records[rec.UserID][rec.EntryID]; exists {
		return fmt.Errorf("%w: duplicate entry_id %s", domain.ErrValidation, rec.EntryID)
	}
	m.records[rec.UserID][rec.EntryID] = cloneRecord(rec)
	return nil
}

func (m *MemoryStore) UpdateRecord(_ context.Context, userID, entryID string, update *domain.RecordUpdate) (*domain.MoodRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[userID][entryID]
	if !ok {
		return nil, fmt.Errorf("%w: mood record %s", domain.ErrNotFound, entryID)
	}
	if update != nil && !update.IsEmpty() {
		update.Apply(r)
		r.UpdatedAt = m.now().UTC()
	}
	return cloneRecord(r), nil
}

func (m *MemoryStore) DeleteRecord(_ context.Context, userID, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[userID][entryID]; !ok {
		return fmt.Errorf("%w: mood record %s", domain.ErrNotFound, entryID)
	}
	delete(m.records[userID], entryID)
	return nil
}

func (m *MemoryStore) DeleteAllRecords(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.records[userID]))
	delete(m.records, userID)
	return n, nil
}

// ---- stats ----

func (m *MemoryStore) GetStats(_ context.Context, userID string) (*domain.UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stats[userID]
	if !ok {
		return nil, fmt.Errorf("%w: stats for user %s", domain.ErrNotFound, userID)
	}
	return cloneStats(s), nil
}

func (m *MemoryStore) PutStats(_ context.Context, stats *domain.UserStats) error {
	if stats == nil || stats.UserID == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cloneStats(stats)
	if prev, ok := m.stats[stats.UserID]; ok {
		if prev.MindfulMomentsCount > c.MindfulMomentsCount {
			c.MindfulMomentsCount = prev.MindfulMomentsCount
		}
		c.UnlockedBadges = unionBadges(prev.UnlockedBadges, c.UnlockedBadges)
	}
	m.stats[stats.UserID] = c
	return nil
}

// unionBadges prev order first, then ids only next has
func unionBadges(prev, next []string) []string {
	out := append(make([]string, 0, len(prev)+len(next)), prev...)
	seen := make(map[string]bool, len(prev))
	for _, id := range prev {
		seen[id] = true
	}
	for _, id := range next {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (m *MemoryStore) IncrementMindfulMoments(_ context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[userID]
	if !ok {
		// zero LastUpdated marks the row stale
		s = &domain.UserStats{UserID: userID, UnlockedBadges: []string{}}
		m.stats[userID] = s
	}
	s.MindfulMomentsCount++
	return s.MindfulMomentsCount, nil
}

func (m *MemoryStore) DeleteStats(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stats, userID)
	return nil
}

func (m *MemoryStore) ListUserIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := map[string]struct{}{}
	for id, recs := range m.records {
		if len(recs) > 0 {
			set[id] = struct{}{}
		}
	}
	for id := range m.stats {
		set[id] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
