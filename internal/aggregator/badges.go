package aggregator

import "moodweather/internal/domain"

// Catalog fixed badge catalog; order here is the order new unlocks are appended in
var Catalog = []domain.Badge{
	{
		ID:          domain.BadgeSevenDayStreak,
		Name:        "7-Day Streak",
		Goal:        "Log your mood for 7 consecutive days.",
		Description: "Build a consistent habit to unlock your weekly emotional weather report.",
		Icon:        "vibrant_sun",
		TargetValue: 7,
	},
	{
		ID:          domain.BadgeStoryteller,
		Name:        "Storyteller",
		Goal:        "Add a text note to any mood entry.",
		Description: "Provide qualitative context to your 'inner climate' to enrich your mood analysis.",
		Icon:        "book_open",
		TargetValue: 1,
	},
	{
		ID:          domain.BadgeMindfulMoment,
		Name:        "Mindful Moment",
		Goal:        "Complete one guided breathing exercise or meditation.",
		Description: "Use the practice player to find calm and check your mood again after the session.",
		Icon:        "wind_wave",
		TargetValue: 1,
	},
	{
		ID:          domain.BadgeWeatherMixologist,
		Name:        "Weather Mixologist",
		Goal:        "Combine two different weather emojis in a single mood entry.",
		Description: "Use the drag-and-drop canvas to show that emotions can be complex, like a 'sunny but cloudy' day.",
		Icon:        "flask",
		TargetValue: 1,
	},
}

// BadgeByID catalog lookup
func BadgeByID(id string) (domain.Badge, bool) {
	for _, b := range Catalog {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Badge{}, false
}

// BadgeSignals inputs of the unlock predicates
type BadgeSignals struct {
	CurrentStreak       int
	HasNoteEver         bool
	HasMultiEmojiEver   bool
	MindfulMomentsCount int
}

// CurrentValue progress value of the signal a badge tracks
func (s BadgeSignals) CurrentValue(badgeID string) int {
	switch badgeID {
	case domain.BadgeSevenDayStreak:
		return s.CurrentStreak
	case domain.BadgeStoryteller:
		return boolToInt(s.HasNoteEver)
	case domain.BadgeMindfulMoment:
		return s.MindfulMomentsCount
	case domain.BadgeWeatherMixologist:
		return boolToInt(s.HasMultiEmojiEver)
	default:
		return 0
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EvaluateBadges returns a superset of unlocked: prior ids in their prior order
// (duplicates dropped), then newly satisfied catalog badges in catalog order.
func EvaluateBadges(signals BadgeSignals, unlocked []string) []string {
	out := make([]string, 0, len(unlocked)+len(Catalog))
	seen := make(map[string]struct{}, len(unlocked)+len(Catalog))
	for _, id := range unlocked {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, b := range Catalog {
		if _, ok := seen[b.ID]; ok {
			continue
		}
		if signals.CurrentValue(b.ID) >= b.TargetValue {
			seen[b.ID] = struct{}{}
			out = append(out, b.ID)
		}
	}
	return out
}

// NewlyUnlocked ids present in current but not in prior
func NewlyUnlocked(prior, current []string) []string {
	had := make(map[string]struct{}, len(prior))
	for _, id := range prior {
		had[id] = struct{}{}
	}
	var out []string
	for _, id := range current {
		if _, ok := had[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Progress min(100, floor(100*current/target))
func Progress(current, target int) int {
	if target <= 0 {
		return 100
	}
	if current <= 0 {
		return 0
	}
	p := current * 100 / target
	if p > 100 {
		return 100
	}
	return p
}

// BuildChallenges presentation view; a badge is completed once unlocked even if
// its signal has since dropped.
func BuildChallenges(stats *domain.UserStats, signals BadgeSignals) domain.ChallengesView {
	unlocked := []string{}
	if stats != nil && stats.UnlockedBadges != nil {
		unlocked = append(unlocked, stats.UnlockedBadges...)
	}
	isUnlocked := make(map[string]struct{}, len(unlocked))
	for _, id := range unlocked {
		isUnlocked[id] = struct{}{}
	}

	view := domain.ChallengesView{
		CurrentStreak:  signals.CurrentStreak,
		UnlockedBadges: unlocked,
		Challenges:     make([]domain.Challenge, 0, len(Catalog)),
	}
	for _, b := range Catalog {
		current := signals.CurrentValue(b.ID)
		_, done := isUnlocked[b.ID]
		status := domain.ChallengeLocked
		if done || current >= b.TargetValue {
			status = domain.ChallengeCompleted
		}
		view.Challenges = append(view.Challenges, domain.Challenge{
			Badge:        b,
			Status:       status,
			Progress:     Progress(current, b.TargetValue),
			CurrentValue: current,
		})
	}
	return view
}
