package external

import (
	"context"
	"errors"

	"moodweather/internal/domain"

	"go.uber.org/zap"
)

// Enricher attaches the weather snapshot and place name to new records
type Enricher struct {
	weather  *WeatherClient   // optional
	geocoder *GeocodingClient // optional
	logger   *zap.Logger
}

func NewEnricher(weather *WeatherClient, geocoder *GeocodingClient, logger *zap.Logger) *Enricher {
	return &Enricher{
		weather:  weather,
		geocoder: geocoder,
		logger:   logger,
	}
}

// Enrich best effort; lookups that fail are logged and skipped
func (e *Enricher) Enrich(ctx context.Context, rec *domain.MoodRecord) {
	if rec.Location == nil {
		return
	}
	lat, lon := rec.Location.Lat, rec.Location.Lon

	if e.weather != nil && e.weather.Configured() && rec.ExternalWeather == nil {
		current, err := e.weather.Current(ctx, lat, lon)
		if err != nil {
			e.logger.Warn("Weather lookup failed, storing record without weather",
				zap.String("user_id", rec.UserID),
				zap.Error(err),
			)
		} else {
			rec.ExternalWeather = current.Snapshot()
		}
	}

	if e.geocoder != nil && e.geocoder.Configured() && rec.Location.PlaceName == "" {
		place, err := e.geocoder.ReverseGeocode(ctx, lat, lon)
		switch {
		case err != nil && !errors.Is(err, ErrNotConfigured):
			e.logger.Warn("Reverse geocoding failed", zap.String("user_id", rec.UserID), zap.Error(err))
		case place != nil:
			rec.Location.PlaceName = place.ShortName()
		}
	}
}
