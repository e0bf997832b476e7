package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeEmojis_DedupKeepsOrder(t *testing.T) {
	out, err := NormalizeEmojis([]string{"rainy", "sunny", "rainy", "cloudy", "sunny"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rainy", "sunny", "cloudy"}, out)
}

func TestNormalizeEmojis_Rejects(t *testing.T) {
	_, err := NormalizeEmojis(nil)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = NormalizeEmojis([]string{"sunny", "sunny", "sunny", "sunny", "sunny", "sunny"})
	assert.True(t, errors.Is(err, ErrValidation), "more than 5 items before dedup")

	_, err = NormalizeEmojis([]string{"snowy"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestMoodRecord_Validate(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)
	r := &MoodRecord{
		UserID:    "user-1",
		Timestamp: time.Date(2026, 3, 1, 1, 0, 0, 0, cest),
		Emojis:    []string{"sunny", "sunny"},
		Intensity: 50,
	}
	require.NoError(t, r.Validate())
	assert.Equal(t, []string{"sunny"}, r.Emojis)
	assert.Equal(t, time.UTC, r.Timestamp.Location())
	assert.Equal(t, 28, r.Timestamp.Day(), "UTC day differs from local day")

	bad := *r
	bad.Intensity = 101
	assert.True(t, errors.Is(bad.Validate(), ErrValidation))

	bad = *r
	bad.Note = strPtr(strings.Repeat("a", MaxNoteLength+1))
	assert.True(t, errors.Is(bad.Validate(), ErrValidation))

	bad = *r
	bad.Location = &Location{Lat: 91}
	assert.True(t, errors.Is(bad.Validate(), ErrValidation))

	bad = *r
	bad.UserID = ""
	assert.True(t, errors.Is(bad.Validate(), ErrValidation))
}

func TestMoodRecord_ValidateTruncatesToMicroseconds(t *testing.T) {
	cts := time.Date(2026, 3, 1, 9, 0, 0, 123456789, time.UTC)
	r := &MoodRecord{
		UserID:          "user-1",
		Timestamp:       time.Date(2026, 3, 1, 8, 0, 0, 999999999, time.UTC),
		ClientTimestamp: &cts,
		Emojis:          []string{"sunny"},
		Intensity:       50,
	}
	require.NoError(t, r.Validate())
	assert.Equal(t, 999999000, r.Timestamp.Nanosecond())
	require.NotNil(t, r.ClientTimestamp)
	assert.Equal(t, 123456000, r.ClientTimestamp.Nanosecond())
	assert.Equal(t, 123456789, cts.Nanosecond(), "caller's value is not mutated")
}

func TestMoodRecord_HasNote(t *testing.T) {
	r := &MoodRecord{}
	assert.False(t, r.HasNote())
	r.Note = strPtr("   ")
	assert.False(t, r.HasNote())
	r.Note = strPtr("walked in the rain")
	assert.True(t, r.HasNote())
}

func TestRecordUpdate_Apply(t *testing.T) {
	r := &MoodRecord{Emojis: []string{"sunny"}, Intensity: 10, Note: strPtr("old")}
	intensity := 80
	cts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &RecordUpdate{
		Emojis:          []string{"rainy", "stormy"},
		Intensity:       &intensity,
		ClearNote:       true,
		Location:        &Location{Lat: 45.46, Lon: 9.19},
		ClientTimestamp: &cts,
	}
	assert.False(t, u.IsEmpty())
	u.Apply(r)

	assert.Equal(t, []string{"rainy", "stormy"}, r.Emojis)
	assert.Equal(t, 80, r.Intensity)
	assert.Nil(t, r.Note)
	require.NotNil(t, r.Location)
	assert.Equal(t, 45.46, r.Location.Lat)
	require.NotNil(t, r.ClientTimestamp)
	assert.True(t, cts.Equal(*r.ClientTimestamp))

	assert.True(t, (&RecordUpdate{}).IsEmpty())
}

func TestUserStats_IsStale(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 30, 0, 0, time.UTC)
	s := &UserStats{LastUpdated: time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)}
	assert.True(t, s.IsStale(now))

	s.LastUpdated = time.Date(2026, 10, 17, 0, 1, 0, 0, time.UTC)
	assert.False(t, s.IsStale(now))
}

func TestMergeStats_KeepsLedger(t *testing.T) {
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	merged := MergeStats("user-1", DerivedStats{TotalEntries: 3}, StatsLedger{
		UnlockedBadges:      []string{BadgeStoryteller},
		MindfulMomentsCount: 2,
	}, now)

	assert.Equal(t, 3, merged.TotalEntries)
	assert.Equal(t, []string{BadgeStoryteller}, merged.UnlockedBadges)
	assert.Equal(t, 2, merged.MindfulMomentsCount)
	assert.Equal(t, now, merged.LastUpdated)

	empty := MergeStats("user-1", DerivedStats{}, StatsLedger{}, now)
	assert.NotNil(t, empty.UnlockedBadges)
	assert.Empty(t, empty.UnlockedBadges)
}
