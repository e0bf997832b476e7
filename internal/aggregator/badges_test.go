package aggregator_test

import (
	"testing"

	agg "moodweather/internal/aggregator"
	"moodweather/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateBadges_CatalogOrderForNewUnlocks(t *testing.T) {
	got := agg.EvaluateBadges(agg.BadgeSignals{
		CurrentStreak:       7,
		HasNoteEver:         true,
		HasMultiEmojiEver:   true,
		MindfulMomentsCount: 1,
	}, nil)
	assert.Equal(t, []string{
		domain.BadgeSevenDayStreak,
		domain.BadgeStoryteller,
		domain.BadgeMindfulMoment,
		domain.BadgeWeatherMixologist,
	}, got)
}

func TestEvaluateBadges_PriorOrderFirst(t *testing.T) {
	prior := []string{domain.BadgeWeatherMixologist}
	got := agg.EvaluateBadges(agg.BadgeSignals{HasNoteEver: true, MindfulMomentsCount: 3}, prior)
	assert.Equal(t, []string{
		domain.BadgeWeatherMixologist,
		domain.BadgeStoryteller,
		domain.BadgeMindfulMoment,
	}, got)
}

func TestEvaluateBadges_Monotonic(t *testing.T) {
	strong := agg.BadgeSignals{CurrentStreak: 9, HasNoteEver: true}
	first := agg.EvaluateBadges(strong, nil)
	require.Contains(t, first, domain.BadgeSevenDayStreak)

	// same signals: unchanged
	assert.Equal(t, first, agg.EvaluateBadges(strong, first))

	// weaker signals never remove anything
	weaker := agg.EvaluateBadges(agg.BadgeSignals{}, first)
	assert.Equal(t, first, weaker)
}

func TestEvaluateBadges_KeepsUnknownPriorIDs(t *testing.T) {
	got := agg.EvaluateBadges(agg.BadgeSignals{}, []string{"retired_badge", "retired_badge"})
	assert.Equal(t, []string{"retired_badge"}, got)
}

func TestEvaluateBadges_Thresholds(t *testing.T) {
	assert.Empty(t, agg.EvaluateBadges(agg.BadgeSignals{CurrentStreak: 6}, nil))
	assert.Equal(t, []string{domain.BadgeSevenDayStreak}, agg.EvaluateBadges(agg.BadgeSignals{CurrentStreak: 7}, nil))
}

func TestNewlyUnlocked(t *testing.T) {
	assert.Equal(t, []string{"b"}, agg.NewlyUnlocked([]string{"a"}, []string{"a", "b"}))
	assert.Empty(t, agg.NewlyUnlocked([]string{"a"}, []string{"a"}))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, agg.Progress(0, 7))
	assert.Equal(t, 42, agg.Progress(3, 7), "floor(300/7)=42")
	assert.Equal(t, 100, agg.Progress(7, 7))
	assert.Equal(t, 100, agg.Progress(12, 7))
	assert.Equal(t, 100, agg.Progress(3, 1))
}

func TestBuildChallenges(t *testing.T) {
	stats := &domain.UserStats{
		UserID:         "user-1",
		CurrentStreak:  3,
		UnlockedBadges: []string{domain.BadgeStoryteller},
	}
	// the note was since deleted: signal false, badge stays completed
	view := agg.BuildChallenges(stats, agg.BadgeSignals{CurrentStreak: 3, MindfulMomentsCount: 2})

	assert.Equal(t, 3, view.CurrentStreak)
	assert.Equal(t, []string{domain.BadgeStoryteller}, view.UnlockedBadges)
	require.Len(t, view.Challenges, len(agg.Catalog))

	byID := map[string]domain.Challenge{}
	for _, c := range view.Challenges {
		byID[c.ID] = c
	}
	assert.Equal(t, domain.ChallengeLocked, byID[domain.BadgeSevenDayStreak].Status)
	assert.Equal(t, 42, byID[domain.BadgeSevenDayStreak].Progress)
	assert.Equal(t, "vibrant_sun", byID[domain.BadgeSevenDayStreak].Icon)

	assert.Equal(t, domain.ChallengeCompleted, byID[domain.BadgeStoryteller].Status)
	assert.Equal(t, 0, byID[domain.BadgeStoryteller].CurrentValue)

	assert.Equal(t, domain.ChallengeCompleted, byID[domain.BadgeMindfulMoment].Status)
	assert.Equal(t, 100, byID[domain.BadgeMindfulMoment].Progress)

	assert.Equal(t, domain.ChallengeLocked, byID[domain.BadgeWeatherMixologist].Status)
}
