package aggregator

import (
	"math"
	"sort"
	"time"

	"moodweather/internal/domain"
)

// Derive one pass over the record set. Returns the purely derived stats and the
// badge signals; mindfulCount is carried from the ledger.
func Derive(records []*domain.MoodRecord, mindfulCount int, now time.Time) (domain.DerivedStats, BadgeSignals) {
	var (
		counts         = map[string]int{}
		totalIntensity int
		hasNote        bool
		hasMulti       bool
		daySums        [7]int
		dayCounts      [7]int
		days           = make([]time.Time, 0, len(records))
	)

	for _, r := range records {
		for _, e := range r.Emojis {
			counts[e]++
		}
		totalIntensity += r.Intensity
		if r.HasNote() {
			hasNote = true
		}
		if len(r.Emojis) >= 2 {
			hasMulti = true
		}
		wd := r.Timestamp.UTC().Weekday()
		daySums[wd] += r.Intensity
		dayCounts[wd]++
		days = append(days, r.Timestamp)
	}

	streaks := ComputeStreaks(days, now)
	derived := domain.DerivedStats{
		TotalEntries:  len(records),
		CurrentStreak: streaks.Current,
		LongestStreak: streaks.Longest,
		DominantMood:  dominantMood(counts),
	}
	if len(records) > 0 {
		derived.AverageIntensity = round2(float64(totalIntensity) / float64(len(records)))
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if dayCounts[wd] > 0 {
			derived.WeeklyRhythm.Set(wd, round2(float64(daySums[wd])/float64(dayCounts[wd])))
		}
	}

	signals := BadgeSignals{
		CurrentStreak:       streaks.Current,
		HasNoteEver:         hasNote,
		HasMultiEmojiEver:   hasMulti,
		MindfulMomentsCount: mindfulCount,
	}
	return derived, signals
}

// dominantMood highest count; ties go to the lexically smallest tag
func dominantMood(counts map[string]int) *string {
	if len(counts) == 0 {
		return nil
	}
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	best := tags[0]
	for _, tag := range tags[1:] {
		if counts[tag] > counts[best] {
			best = tag
		}
	}
	return &best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
