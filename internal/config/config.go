package config

import (
	"os"
	"strconv"
	"time"

	"moodweather/internal/common/config"
)

// Config moodweather service configuration
type Config struct {
	HTTP struct {
		Addr string
	}

	// DBEnabled=false runs on the in-memory store
	DBEnabled bool
	Database  config.DatabaseConfig
	Redis     config.RedisConfig
	MQTT      config.MQTTConfig

	Sync struct {
		MaxBatchSize int           // items per reconcile call, default 100
		ItemTimeout  time.Duration // per-item store deadline, default 5s
	}

	Stats struct {
		CacheTTL  time.Duration // snapshot TTL in Redis
		SweepHour int           // UTC hour of the daily stale sweep, -1 disables
	}

	// Redis Streams (mindful-moment events from other services)
	Mindful struct {
		EventStream   string // "mindful:events"
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int
	}

	Weather struct {
		APIKey   string
		BaseURL  string
		CacheTTL time.Duration
		Timeout  time.Duration
	}

	Geocoding struct {
		APIKey  string
		BaseURL string
		Timeout time.Duration
	}

	Sentiment struct {
		APIKey  string
		BaseURL string
		Timeout time.Duration
	}

	Reminder struct {
		Enabled bool
		Hour    int // UTC
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "moodweather"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "moodweather-notify"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Sync.MaxBatchSize = parseInt(getEnv("SYNC_MAX_BATCH", "100"), 100)
	cfg.Sync.ItemTimeout = time.Duration(parseInt(getEnv("SYNC_ITEM_TIMEOUT_MS", "5000"), 5000)) * time.Millisecond

	cfg.Stats.CacheTTL = time.Duration(parseInt(getEnv("STATS_CACHE_TTL", "3600"), 3600)) * time.Second
	cfg.Stats.SweepHour = parseHour(getEnv("STATS_SWEEP_HOUR", "0"), 0)

	cfg.Mindful.EventStream = getEnv("MINDFUL_EVENT_STREAM", "mindful:events")
	cfg.Mindful.ConsumerGroup = getEnv("MINDFUL_CONSUMER_GROUP", "moodweather-group")
	cfg.Mindful.ConsumerName = getEnv("MINDFUL_CONSUMER_NAME", "moodweather-1")
	cfg.Mindful.BatchSize = 10

	cfg.Weather.APIKey = getEnv("OPENWEATHER_API_KEY", "")
	cfg.Weather.BaseURL = getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5")
	cfg.Weather.CacheTTL = time.Duration(parseInt(getEnv("OPENWEATHER_CACHE_TTL", "600"), 600)) * time.Second
	cfg.Weather.Timeout = time.Duration(parseInt(getEnv("OPENWEATHER_TIMEOUT_MS", "5000"), 5000)) * time.Millisecond

	cfg.Geocoding.APIKey = getEnv("OPENCAGE_API_KEY", "")
	cfg.Geocoding.BaseURL = getEnv("OPENCAGE_BASE_URL", "https://api.opencagedata.com/geocode/v1")
	cfg.Geocoding.Timeout = time.Duration(parseInt(getEnv("OPENCAGE_TIMEOUT_MS", "5000"), 5000)) * time.Millisecond

	cfg.Sentiment.APIKey = getEnv("SENTIMENT_API_KEY", "")
	cfg.Sentiment.BaseURL = getEnv("SENTIMENT_BASE_URL", "https://language.googleapis.com/v1")
	cfg.Sentiment.Timeout = time.Duration(parseInt(getEnv("SENTIMENT_TIMEOUT_MS", "5000"), 5000)) * time.Millisecond

	cfg.Reminder.Enabled = getEnv("REMINDER_ENABLED", "false") == "true"
	cfg.Reminder.Hour = parseHour(getEnv("REMINDER_HOUR", "20"), 20)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt positive integers only, otherwise the default
func parseInt(s string, defaultValue int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

// parseHour 0-23, or -1 to disable
func parseHour(s string, defaultValue int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < -1 || v > 23 {
		return defaultValue
	}
	return v
}
