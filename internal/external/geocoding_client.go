package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// GeocodedLocation reverse geocoding result
type GeocodedLocation struct {
	City         string `json:"city,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Suburb       string `json:"suburb,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	Formatted    string `json:"formatted"`
}

// ShortName "Neighborhood, City", falling back to the first two parts of Formatted
func (g *GeocodedLocation) ShortName() string {
	parts := []string{}
	if g.Neighborhood != "" {
		parts = append(parts, g.Neighborhood)
	} else if g.Suburb != "" {
		parts = append(parts, g.Suburb)
	}
	if g.City != "" {
		parts = append(parts, g.City)
	}
	if len(parts) == 0 {
		for i, p := range strings.Split(g.Formatted, ",") {
			if i == 2 {
				break
			}
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.TrimSpace(strings.Join(parts, ", "))
}

type openCageResponse struct {
	Results []struct {
		Formatted  string         `json:"formatted"`
		Components map[string]any `json:"components"`
	} `json:"results"`
}

func component(c map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := c[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// GeocodingClient OpenCage reverse geocoder
type GeocodingClient struct {
	httpClient *resty.Client
	apiKey     string
	cache      Cache // optional
	logger     *zap.Logger
}

// NewGeocodingClient cache may be nil; place names don't change so entries never expire
func NewGeocodingClient(baseURL, apiKey string, timeout time.Duration, cache Cache, logger *zap.Logger) *GeocodingClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &GeocodingClient{
		httpClient: client,
		apiKey:     apiKey,
		cache:      cache,
		logger:     logger,
	}
}

// Configured true when an API key is set
func (c *GeocodingClient) Configured() bool {
	return c.apiKey != ""
}

// GeocodeCacheKey ~100m precision
func GeocodeCacheKey(lat, lon float64) string {
	return fmt.Sprintf("moodweather:geocode:%.3f,%.3f", lat, lon)
}

// ReverseGeocode returns (nil, nil) when the upstream has no result
func (c *GeocodingClient) ReverseGeocode(ctx context.Context, lat, lon float64) (*GeocodedLocation, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	key := GeocodeCacheKey(lat, lon)
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var cached GeocodedLocation
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var payload openCageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":              fmt.Sprintf("%f,%f", lat, lon),
			"key":            c.apiKey,
			"language":       "en",
			"no_annotations": "1",
			"limit":          "1",
		}).
		SetResult(&payload).
		Get("/json")
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: reverse geocoding", ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("failed to call OpenCage: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &UpstreamError{Service: "geocoding", StatusCode: resp.StatusCode()}
	}
	if len(payload.Results) == 0 {
		c.logger.Warn("No geocoding results", zap.String("key", key))
		return nil, nil
	}

	result := payload.Results[0]
	loc := &GeocodedLocation{
		City:         component(result.Components, "city", "town", "village"),
		Neighborhood: component(result.Components, "neighbourhood"),
		Suburb:       component(result.Components, "suburb"),
		State:        component(result.Components, "state", "region"),
		Country:      component(result.Components, "country"),
		CountryCode:  component(result.Components, "country_code"),
		Formatted:    result.Formatted,
	}
	if loc.Formatted == "" {
		loc.Formatted = "Unknown location"
	}

	if c.cache != nil {
		if b, err := json.Marshal(loc); err == nil {
			_ = c.cache.Set(ctx, key, string(b), 0)
		}
	}
	return loc, nil
}
