package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"moodweather/internal/domain"
	"moodweather/internal/external"

	"go.uber.org/zap"
)

const maxAnalyzeTextLength = 1000

// ExternalHandler weather pass-through and note sentiment
type ExternalHandler struct {
	weather   *external.WeatherClient
	geocoder  *external.GeocodingClient // optional
	sentiment *external.SentimentClient
	logger    *zap.Logger
}

func NewExternalHandler(
	weather *external.WeatherClient,
	geocoder *external.GeocodingClient,
	sentiment *external.SentimentClient,
	logger *zap.Logger,
) *ExternalHandler {
	return &ExternalHandler{
		weather:   weather,
		geocoder:  geocoder,
		sentiment: sentiment,
		logger:    logger,
	}
}

// CurrentWeather GET /api/v1/weather/current?lat=&lon=
func (h *ExternalHandler) CurrentWeather(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	lat, err := parseFloatQuery(r, "lat")
	if err != nil {
		writeError(w, h.logger, "CurrentWeather", err)
		return
	}
	lon, err := parseFloatQuery(r, "lon")
	if err != nil {
		writeError(w, h.logger, "CurrentWeather", err)
		return
	}
	if err := domain.ValidateLocation(&domain.Location{Lat: lat, Lon: lon}); err != nil {
		writeError(w, h.logger, "CurrentWeather", err)
		return
	}

	current, err := h.weather.Current(r.Context(), lat, lon)
	if err != nil {
		writeError(w, h.logger, "CurrentWeather", err)
		return
	}

	if h.geocoder != nil && h.geocoder.Configured() && current.Location.PlaceName == "" {
		place, err := h.geocoder.ReverseGeocode(r.Context(), lat, lon)
		if err != nil {
			h.logger.Debug("Reverse geocoding failed", zap.Error(err))
		} else if place != nil {
			current.Location.PlaceName = place.ShortName()
		}
	}
	writeJSON(w, http.StatusOK, Ok(current))
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// Analyze POST /api/v1/nlp/analyze
func (h *ExternalHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	var req analyzeRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "Analyze", err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" || utf8.RuneCountInString(text) > maxAnalyzeTextLength {
		writeError(w, h.logger, "Analyze", fmt.Errorf("%w: text must be 1-%d characters", domain.ErrValidation, maxAnalyzeTextLength))
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.sentiment.Analyze(r.Context(), text)))
}

// ClearWeatherCache DELETE /api/v1/weather/cache
func (h *ExternalHandler) ClearWeatherCache(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	if _, err := h.weather.ClearCache(r.Context()); err != nil {
		writeError(w, h.logger, "ClearWeatherCache", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nlpHealth struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NLPHealth GET /api/v1/nlp/health
func (h *ExternalHandler) NLPHealth(w http.ResponseWriter, _ *http.Request) {
	res := nlpHealth{Service: "NLP", Status: "mocked", Message: "Sentiment API key missing, answering neutral"}
	if h.sentiment.Configured() {
		res.Status = "active"
		res.Message = "Sentiment analysis integration active"
	}
	writeJSON(w, http.StatusOK, Ok(res))
}
