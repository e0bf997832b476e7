package domain

// Badge ids
const (
	BadgeSevenDayStreak    = "7_day_streak"
	BadgeStoryteller       = "storyteller"
	BadgeMindfulMoment     = "mindful_moment"
	BadgeWeatherMixologist = "weather_mixologist"
)

// Badge static catalog entry; only the unlocked id set is persisted per user
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Goal        string `json:"goal"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	TargetValue int    `json:"targetValue"`
}

// Challenge statuses
const (
	ChallengeLocked    = "locked"
	ChallengeCompleted = "completed"
)

// Challenge presentation view of a badge for one user
type Challenge struct {
	Badge
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	CurrentValue int    `json:"currentValue"`
}

// ChallengesView response for the challenges screen
type ChallengesView struct {
	CurrentStreak  int         `json:"currentStreak"`
	UnlockedBadges []string    `json:"unlockedBadges"`
	Challenges     []Challenge `json:"challenges"`
}
