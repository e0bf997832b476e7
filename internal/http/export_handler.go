package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"moodweather/internal/domain"
	"moodweather/internal/export"
	"moodweather/internal/service"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler /api/v1/export
type ExportHandler struct {
	moods  *service.MoodService
	logger *zap.Logger
}

func NewExportHandler(moods *service.MoodService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{moods: moods, logger: logger}
}

type exportRequest struct {
	UserID    string     `json:"userId"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

func (h *ExportHandler) load(w http.ResponseWriter, r *http.Request, op string) (string, []*domain.MoodRecord, bool) {
	caller, ok := callerID(w, r)
	if !ok {
		return "", nil, false
	}
	var req exportRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, op, err)
		return "", nil, false
	}
	if req.UserID != "" && req.UserID != caller {
		writeError(w, h.logger, op, fmt.Errorf("%w: you can only export your own data", domain.ErrOwnership))
		return "", nil, false
	}

	records, err := h.moods.AllMoods(r.Context(), caller, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, h.logger, op, err)
		return "", nil, false
	}
	return caller, records, true
}

func attachment(w http.ResponseWriter, contentType, userID, ext string) {
	name := fmt.Sprintf("mood_export_%s_%s.%s", userID, time.Now().UTC().Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

// ExportCSV POST /api/v1/export/csv
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	caller, records, ok := h.load(w, r, "ExportCSV")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		writeError(w, h.logger, "ExportCSV", err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", caller, "csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ExportXLSX POST /api/v1/export/xlsx
func (h *ExportHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	caller, records, ok := h.load(w, r, "ExportXLSX")
	if !ok {
		return
	}

	data, err := export.GenerateXLSX(records)
	if err != nil {
		writeError(w, h.logger, "ExportXLSX", err)
		return
	}
	attachment(w, xlsxContentType, caller, "xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ExportFormat one entry of the supported-formats listing
type ExportFormat struct {
	Format      string `json:"format"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ContentType string `json:"contentType"`
	Endpoint    string `json:"endpoint"`
}

var exportFormats = []ExportFormat{
	{
		Format:      "csv",
		Name:        "CSV File",
		Description: "Comma separated values, one row per mood entry",
		ContentType: "text/csv; charset=utf-8",
		Endpoint:    "/api/v1/export/csv",
	},
	{
		Format:      "xlsx",
		Name:        "Excel Workbook",
		Description: "Single sheet workbook with a frozen header row",
		ContentType: xlsxContentType,
		Endpoint:    "/api/v1/export/xlsx",
	},
}

// SupportedFormats GET /api/v1/export/supported-formats
func (h *ExportHandler) SupportedFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string][]ExportFormat{"formats": exportFormats}))
}
