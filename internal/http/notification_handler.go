package httpapi

import (
	"net/http"

	"moodweather/internal/service"

	"go.uber.org/zap"
)

// NotificationHandler on-demand pushes
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// SendTest POST /api/v1/notifications/test
func (h *NotificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.notifications.SendTest(r.Context(), caller); err != nil {
		writeError(w, h.logger, "SendTest", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"message": "Notification sent"}))
}

type sendReminderRequest struct {
	UserID string `json:"userId"`
}

// SendReminder POST /api/v1/notifications/reminders/send; empty body reminds the caller
func (h *NotificationHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req sendReminderRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "SendReminder", err)
		return
	}
	res, err := h.notifications.SendReminder(r.Context(), caller, req.UserID)
	if err != nil {
		writeError(w, h.logger, "SendReminder", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}
