package httpapi

import (
	"net/http"

	"moodweather/internal/service"

	"go.uber.org/zap"
)

// AccountHandler push registration and account erasure
type AccountHandler struct {
	accounts *service.AccountService
	logger   *zap.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type registerTokenRequest struct {
	Token string `json:"token"`
}

// RegisterToken POST /api/v1/notifications/register
func (h *AccountHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req registerTokenRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "RegisterToken", err)
		return
	}
	if err := h.accounts.RegisterPushToken(r.Context(), caller, req.Token); err != nil {
		writeError(w, h.logger, "RegisterToken", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"message": "Token registered successfully"}))
}

// DeleteUser DELETE /api/v1/users/{userId}
func (h *AccountHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if _, err := h.accounts.DeleteAccount(r.Context(), caller, r.PathValue("userId")); err != nil {
		writeError(w, h.logger, "DeleteUser", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
