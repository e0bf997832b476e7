package aggregator

import (
	"sort"
	"time"

	"moodweather/internal/domain"
)

// Streaks consecutive-day counts over distinct UTC calendar days
type Streaks struct {
	Current int
	Longest int
}

// ComputeStreaks pure; days may contain duplicates and any time of day.
//   - Longest: longest run of adjacent calendar days.
//   - Current: 0 unless the most recent day is today or yesterday (UTC),
//     otherwise the run ending at that most recent day.
func ComputeStreaks(days []time.Time, today time.Time) Streaks {
	if len(days) == 0 {
		return Streaks{}
	}

	set := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		set[domain.TruncateDay(d)] = struct{}{}
	}
	sorted := make([]time.Time, 0, len(set))
	for d := range set {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if isNextDay(sorted[i-1], sorted[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	todayDay := domain.TruncateDay(today)
	yesterday := todayDay.AddDate(0, 0, -1)
	latest := sorted[len(sorted)-1]
	if !latest.Equal(todayDay) && !latest.Equal(yesterday) {
		return Streaks{Current: 0, Longest: longest}
	}

	current := 1
	for i := len(sorted) - 1; i > 0; i-- {
		if !isNextDay(sorted[i-1], sorted[i]) {
			break
		}
		current++
	}
	return Streaks{Current: current, Longest: longest}
}

func isNextDay(prev, next time.Time) bool {
	return prev.AddDate(0, 0, 1).Equal(next)
}
