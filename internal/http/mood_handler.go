package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"moodweather/internal/domain"
	"moodweather/internal/service"

	"go.uber.org/zap"
)

// MoodHandler /api/v1/moods
type MoodHandler struct {
	moods  *service.MoodService
	logger *zap.Logger
}

func NewMoodHandler(moods *service.MoodService, logger *zap.Logger) *MoodHandler {
	return &MoodHandler{moods: moods, logger: logger}
}

type createMoodRequest struct {
	UserID    string           `json:"userId"`
	Timestamp *time.Time       `json:"timestamp"`
	Emojis    []string         `json:"emojis"`
	Intensity *int             `json:"intensity"`
	Note      *string          `json:"note"`
	Location  *domain.Location `json:"location"`
}

type updateMoodRequest struct {
	Emojis    []string         `json:"emojis"`
	Intensity *int             `json:"intensity"`
	Note      *string          `json:"note"` // "" clears the note
	Location  *domain.Location `json:"location"`
}

// CreateMood POST /api/v1/moods
func (h *MoodHandler) CreateMood(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req createMoodRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "CreateMood", err)
		return
	}
	if req.Intensity == nil {
		writeError(w, h.logger, "CreateMood", fmt.Errorf("%w: intensity is required", domain.ErrValidation))
		return
	}

	rec := &domain.MoodRecord{
		UserID:    req.UserID,
		Emojis:    req.Emojis,
		Intensity: *req.Intensity,
		Note:      req.Note,
		Location:  req.Location,
	}
	if req.Timestamp != nil {
		rec.Timestamp = *req.Timestamp
	}

	created, err := h.moods.CreateMood(r.Context(), caller, rec)
	if err != nil {
		writeError(w, h.logger, "CreateMood", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(created))
}

// ListMoods GET /api/v1/moods?userId=&startDate=&endDate=&limit=50&offset=0
func (h *MoodHandler) ListMoods(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	req := service.ListMoodsRequest{CallerID: caller, UserID: r.URL.Query().Get("userId")}
	var err error
	if req.StartDate, err = parseTimeQuery(r, "startDate"); err != nil {
		writeError(w, h.logger, "ListMoods", err)
		return
	}
	if req.EndDate, err = parseTimeQuery(r, "endDate"); err != nil {
		writeError(w, h.logger, "ListMoods", err)
		return
	}
	if req.Limit, err = parseIntQuery(r, "limit", 0); err != nil {
		writeError(w, h.logger, "ListMoods", err)
		return
	}
	if req.Offset, err = parseIntQuery(r, "offset", 0); err != nil {
		writeError(w, h.logger, "ListMoods", err)
		return
	}

	resp, err := h.moods.ListMoods(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "ListMoods", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetMood GET /api/v1/moods/{id}
func (h *MoodHandler) GetMood(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	rec, err := h.moods.GetMood(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "GetMood", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// UpdateMood PUT /api/v1/moods/{id}
func (h *MoodHandler) UpdateMood(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req updateMoodRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "UpdateMood", err)
		return
	}
	update := &domain.RecordUpdate{
		Emojis:    req.Emojis,
		Intensity: req.Intensity,
		Location:  req.Location,
	}
	if req.Note != nil {
		if *req.Note == "" {
			update.ClearNote = true
		} else {
			update.Note = req.Note
		}
	}

	rec, err := h.moods.UpdateMood(r.Context(), caller, r.PathValue("id"), update)
	if err != nil {
		writeError(w, h.logger, "UpdateMood", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// DeleteMood DELETE /api/v1/moods/{id}
func (h *MoodHandler) DeleteMood(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.moods.DeleteMood(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, h.logger, "DeleteMood", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
