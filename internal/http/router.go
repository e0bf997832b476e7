package httpapi

import (
	"net/http"

	"moodweather/internal/metrics"

	"go.uber.org/zap"
)

// Router standard library http.ServeMux with method patterns
type Router struct {
	mux     *http.ServeMux
	handler http.Handler
	logger  *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	mux := http.NewServeMux()
	r := &Router{
		mux:     mux,
		handler: metrics.InstrumentHandler(mux),
		logger:  logger,
	}
	r.Handle("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "healthy"}))
	})
	r.HandleHandler("GET /metrics", metrics.Handler())
	return r
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler http.Handler variant (metrics)
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

// ServeHTTP every request goes through the metrics middleware
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) RegisterMoodRoutes(h *MoodHandler) {
	r.Handle("POST /api/v1/moods", h.CreateMood)
	r.Handle("GET /api/v1/moods", h.ListMoods)
	r.Handle("GET /api/v1/moods/{id}", h.GetMood)
	r.Handle("PUT /api/v1/moods/{id}", h.UpdateMood)
	r.Handle("DELETE /api/v1/moods/{id}", h.DeleteMood)
}

func (r *Router) RegisterStatsRoutes(h *StatsHandler) {
	r.Handle("GET /api/v1/stats/user/{userId}", h.GetUserStats)
	r.Handle("GET /api/v1/stats/calendar/{userId}", h.GetCalendar)
	r.Handle("POST /api/v1/stats/recalculate/{userId}", h.Recalculate)
	r.Handle("GET /api/v1/challenges", h.GetChallenges)
	r.Handle("POST /api/v1/challenges/mindful", h.CompleteMindful)
}

func (r *Router) RegisterSyncRoutes(h *SyncHandler) {
	r.Handle("POST /api/v1/sync", h.Sync)
	r.Handle("GET /api/v1/sync/status/{userId}", h.GetSyncStatus)
}

func (r *Router) RegisterExternalRoutes(h *ExternalHandler) {
	r.Handle("GET /api/v1/weather/current", h.CurrentWeather)
	r.Handle("DELETE /api/v1/weather/cache", h.ClearWeatherCache)
	r.Handle("POST /api/v1/nlp/analyze", h.Analyze)
	r.Handle("GET /api/v1/nlp/health", h.NLPHealth)
}

func (r *Router) RegisterExportRoutes(h *ExportHandler) {
	r.Handle("POST /api/v1/export/csv", h.ExportCSV)
	r.Handle("POST /api/v1/export/xlsx", h.ExportXLSX)
	r.Handle("GET /api/v1/export/supported-formats", h.SupportedFormats)
}

func (r *Router) RegisterAccountRoutes(h *AccountHandler) {
	r.Handle("POST /api/v1/notifications/register", h.RegisterToken)
	r.Handle("DELETE /api/v1/users/{userId}", h.DeleteUser)
}

func (r *Router) RegisterNotificationRoutes(h *NotificationHandler) {
	r.Handle("POST /api/v1/notifications/test", h.SendTest)
	r.Handle("POST /api/v1/notifications/reminders/send", h.SendReminder)
}
