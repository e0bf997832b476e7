package httpapi

import (
	"net/http"

	"moodweather/internal/service"

	"go.uber.org/zap"
)

// StatsHandler /api/v1/stats and /api/v1/challenges
type StatsHandler struct {
	stats  *service.StatsService
	moods  *service.MoodService
	logger *zap.Logger
}

func NewStatsHandler(stats *service.StatsService, moods *service.MoodService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, moods: moods, logger: logger}
}

// GetUserStats GET /api/v1/stats/user/{userId}
func (h *StatsHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	stats, err := h.stats.UserStats(r.Context(), caller, r.PathValue("userId"))
	if err != nil {
		writeError(w, h.logger, "GetUserStats", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// GetCalendar GET /api/v1/stats/calendar/{userId}?year=2026&month=10
func (h *StatsHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	year, err := parseIntQuery(r, "year", 0)
	if err != nil {
		writeError(w, h.logger, "GetCalendar", err)
		return
	}
	month, err := parseIntQuery(r, "month", 0)
	if err != nil {
		writeError(w, h.logger, "GetCalendar", err)
		return
	}

	cal, err := h.moods.Calendar(r.Context(), caller, r.PathValue("userId"), year, month)
	if err != nil {
		writeError(w, h.logger, "GetCalendar", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cal))
}

// Recalculate POST /api/v1/stats/recalculate/{userId}
func (h *StatsHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	stats, err := h.stats.Recalculate(r.Context(), caller, r.PathValue("userId"))
	if err != nil {
		writeError(w, h.logger, "Recalculate", err)
		return
	}
	writeJSON(w, http.StatusAccepted, Ok(stats))
}

// GetChallenges GET /api/v1/challenges
func (h *StatsHandler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	view, err := h.stats.Challenges(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, "GetChallenges", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

// CompleteMindful POST /api/v1/challenges/mindful
func (h *StatsHandler) CompleteMindful(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	stats, err := h.stats.CompleteMindfulMoment(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, "CompleteMindful", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"message":             "Mindful moment recorded",
		"mindfulMomentsCount": stats.MindfulMomentsCount,
		"unlockedBadges":      stats.UnlockedBadges,
	}))
}
