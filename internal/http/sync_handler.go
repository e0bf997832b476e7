package httpapi

import (
	"net/http"

	"moodweather/internal/domain"
	"moodweather/internal/service"

	"go.uber.org/zap"
)

// SyncHandler /api/v1/sync
type SyncHandler struct {
	sync   *service.SyncService
	logger *zap.Logger
}

func NewSyncHandler(sync *service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, logger: logger}
}

type syncRequest struct {
	Entries []domain.SyncItem `json:"entries"`
}

// Sync POST /api/v1/sync
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req syncRequest
	if err := readBodyJSON(r, 4*maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "Sync", err)
		return
	}

	report, err := h.sync.Reconcile(r.Context(), caller, req.Entries)
	if err != nil {
		writeError(w, h.logger, "Sync", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// GetSyncStatus GET /api/v1/sync/status/{userId}
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	status, err := h.sync.Status(r.Context(), caller, r.PathValue("userId"))
	if err != nil {
		writeError(w, h.logger, "GetSyncStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(status))
}
