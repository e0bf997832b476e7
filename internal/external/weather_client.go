package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"moodweather/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WeatherCurrent current conditions at a coordinate
type WeatherCurrent struct {
	Location           domain.Location `json:"location"`
	Temp               float64         `json:"temp"`
	FeelsLike          float64         `json:"feels_like"`
	TempMin            float64         `json:"temp_min"`
	TempMax            float64         `json:"temp_max"`
	Pressure           int             `json:"pressure"`
	Humidity           int             `json:"humidity"`
	WeatherMain        string          `json:"weather_main"`
	WeatherDescription string          `json:"weather_description"`
	Icon               string          `json:"icon"`
	WindSpeed          float64         `json:"wind_speed"`
	Clouds             int             `json:"clouds"`
	Dt                 time.Time       `json:"dt"`
	Sunrise            time.Time       `json:"sunrise"`
	Sunset             time.Time       `json:"sunset"`
	Timezone           int             `json:"timezone"`
}

// Snapshot subset stored on a mood record
func (w *WeatherCurrent) Snapshot() *domain.ExternalWeather {
	return &domain.ExternalWeather{
		Temp:        w.Temp,
		FeelsLike:   w.FeelsLike,
		Humidity:    w.Humidity,
		Condition:   w.WeatherMain,
		Description: w.WeatherDescription,
		Icon:        w.Icon,
	}
}

// openWeatherResponse /data/2.5/weather payload (fields we use)
type openWeatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Timezone int `json:"timezone"`
}

// WeatherClient OpenWeatherMap client with a coordinate-keyed cache
type WeatherClient struct {
	httpClient *resty.Client
	apiKey     string
	cache      Cache // optional
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewWeatherClient cache may be nil
func NewWeatherClient(baseURL, apiKey string, timeout time.Duration, cache Cache, cacheTTL time.Duration, logger *zap.Logger) *WeatherClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json")

	return &WeatherClient{
		httpClient: client,
		apiKey:     apiKey,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Configured true when an API key is set
func (c *WeatherClient) Configured() bool {
	return c.apiKey != ""
}

const weatherCachePrefix = "moodweather:weather:"

// WeatherCacheKey ~1km precision
func WeatherCacheKey(lat, lon float64) string {
	return fmt.Sprintf("%s%.2f:%.2f", weatherCachePrefix, lat, lon)
}

// ClearCache drops every cached observation; a cache without prefix deletes is left alone
func (c *WeatherClient) ClearCache(ctx context.Context) (int, error) {
	deleter, ok := c.cache.(PrefixDeleter)
	if !ok {
		return 0, nil
	}
	n, err := deleter.DeletePrefix(ctx, weatherCachePrefix)
	if err != nil {
		return n, fmt.Errorf("failed to clear weather cache: %w", err)
	}
	c.logger.Info("Weather cache cleared", zap.Int("keys", n))
	return n, nil
}

// Current conditions at lat/lon, served from cache when fresh
func (c *WeatherClient) Current(ctx context.Context, lat, lon float64) (*WeatherCurrent, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	key := WeatherCacheKey(lat, lon)
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var cached WeatherCurrent
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var payload openWeatherResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":   strconv.FormatFloat(lon, 'f', -1, 64),
			"appid": c.apiKey,
			"units": "metric",
			"lang":  "en",
		}).
		SetResult(&payload).
		Get("/weather")
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: weather lookup", ErrUpstreamTimeout)
		}
		c.logger.Error("OpenWeatherMap call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call OpenWeatherMap: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Warn("OpenWeatherMap returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("key", key),
		)
		return nil, &UpstreamError{Service: "weather", StatusCode: resp.StatusCode()}
	}

	current := &WeatherCurrent{
		Location:  domain.Location{Lat: lat, Lon: lon},
		Temp:      payload.Main.Temp,
		FeelsLike: payload.Main.FeelsLike,
		TempMin:   payload.Main.TempMin,
		TempMax:   payload.Main.TempMax,
		Pressure:  payload.Main.Pressure,
		Humidity:  payload.Main.Humidity,
		WindSpeed: payload.Wind.Speed,
		Clouds:    payload.Clouds.All,
		Dt:        time.Unix(payload.Dt, 0).UTC(),
		Sunrise:   time.Unix(payload.Sys.Sunrise, 0).UTC(),
		Sunset:    time.Unix(payload.Sys.Sunset, 0).UTC(),
		Timezone:  payload.Timezone,
	}
	if len(payload.Weather) > 0 {
		current.WeatherMain = payload.Weather[0].Main
		current.WeatherDescription = payload.Weather[0].Description
		current.Icon = payload.Weather[0].Icon
	}

	if c.cache != nil {
		if b, err := json.Marshal(current); err == nil {
			if err := c.cache.Set(ctx, key, string(b), c.cacheTTL); err != nil {
				c.logger.Debug("Failed to cache weather", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return current, nil
}
