package domain

import "time"

// WeeklyRhythm mean intensity per ISO weekday, 0 when no records that day
type WeeklyRhythm struct {
	Monday    float64 `json:"monday"`
	Tuesday   float64 `json:"tuesday"`
	Wednesday float64 `json:"wednesday"`
	Thursday  float64 `json:"thursday"`
	Friday    float64 `json:"friday"`
	Saturday  float64 `json:"saturday"`
	Sunday    float64 `json:"sunday"`
}

// Set assigns the value for weekday d
func (w *WeeklyRhythm) Set(d time.Weekday, v float64) {
	switch d {
	case time.Monday:
		w.Monday = v
	case time.Tuesday:
		w.Tuesday = v
	case time.Wednesday:
		w.Wednesday = v
	case time.Thursday:
		w.Thursday = v
	case time.Friday:
		w.Friday = v
	case time.Saturday:
		w.Saturday = v
	case time.Sunday:
		w.Sunday = v
	}
}

// Get returns the value for weekday d
func (w WeeklyRhythm) Get(d time.Weekday) float64 {
	switch d {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	default:
		return w.Sunday
	}
}

// DerivedStats pure function of a user's current record set
type DerivedStats struct {
	TotalEntries     int
	CurrentStreak    int
	LongestStreak    int
	DominantMood     *string
	AverageIntensity float64
	WeeklyRhythm     WeeklyRhythm
}

// StatsLedger irreversible history carried across recomputes.
// Both fields only grow; a recompute must read-modify-merge them.
type StatsLedger struct {
	UnlockedBadges      []string
	MindfulMomentsCount int
}

// UserStats persisted statistics, one row per user (user_stats table)
type UserStats struct {
	UserID              string       `json:"userId" db:"user_id"`
	TotalEntries        int          `json:"totalEntries" db:"total_entries"`
	CurrentStreak       int          `json:"currentStreak" db:"current_streak"`
	LongestStreak       int          `json:"longestStreak" db:"longest_streak"`
	DominantMood        *string      `json:"dominantMood" db:"dominant_mood"`
	AverageIntensity    float64      `json:"averageIntensity" db:"average_intensity"`
	WeeklyRhythm        WeeklyRhythm `json:"weeklyRhythm" db:"weekly_rhythm"` // JSONB
	MindfulMomentsCount int          `json:"mindfulMomentsCount" db:"mindful_moments_count"`
	UnlockedBadges      []string     `json:"unlockedBadges" db:"unlocked_badges"` // JSONB
	LastUpdated         time.Time    `json:"lastUpdated" db:"last_updated"`
}

// Ledger extracts the carried-over history fields
func (s *UserStats) Ledger() StatsLedger {
	if s == nil {
		return StatsLedger{}
	}
	return StatsLedger{
		UnlockedBadges:      append([]string(nil), s.UnlockedBadges...),
		MindfulMomentsCount: s.MindfulMomentsCount,
	}
}

// MergeStats combines derived values and ledger into the persisted shape
func MergeStats(userID string, derived DerivedStats, ledger StatsLedger, now time.Time) *UserStats {
	badges := ledger.UnlockedBadges
	if badges == nil {
		badges = []string{}
	}
	return &UserStats{
		UserID:              userID,
		TotalEntries:        derived.TotalEntries,
		CurrentStreak:       derived.CurrentStreak,
		LongestStreak:       derived.LongestStreak,
		DominantMood:        derived.DominantMood,
		AverageIntensity:    derived.AverageIntensity,
		WeeklyRhythm:        derived.WeeklyRhythm,
		MindfulMomentsCount: ledger.MindfulMomentsCount,
		UnlockedBadges:      badges,
		LastUpdated:         now.UTC(),
	}
}

// IsStale true when stats were last computed on an earlier UTC calendar day than now
func (s *UserStats) IsStale(now time.Time) bool {
	return TruncateDay(s.LastUpdated).Before(TruncateDay(now))
}

// CalendarDay summary of one day in the monthly calendar
type CalendarDay struct {
	Emojis    []string `json:"emojis"`
	Intensity int      `json:"intensity"`
	HasNote   bool     `json:"hasNote"`
}

// CalendarMonth days keyed by YYYY-MM-DD
type CalendarMonth struct {
	Year  int                    `json:"year"`
	Month int                    `json:"month"`
	Days  map[string]CalendarDay `json:"days"`
}
