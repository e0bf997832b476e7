package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moodweather/internal/aggregator"
	"moodweather/internal/common/database"
	logpkg "moodweather/internal/common/logger"
	mqttcommon "moodweather/internal/common/mqtt"
	rediscommon "moodweather/internal/common/redis"
	"moodweather/internal/config"
	"moodweather/internal/consumer"
	"moodweather/internal/external"
	httpapi "moodweather/internal/http"
	"moodweather/internal/notify"
	"moodweather/internal/repository"
	"moodweather/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "moodweather")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting moodweather service", zap.Bool("db_enabled", cfg.DBEnabled))

	// stores
	var (
		records repository.MoodRecordsRepository
		users   repository.UserStatsRepository
		db      *sql.DB
	)
	if cfg.DBEnabled {
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close(db)
		records = repository.NewPostgresMoodRecordsRepository(db)
		users = repository.NewPostgresUserStatsRepository(db)
	} else {
		log.Warn("DB_ENABLED=false, using in-memory store")
		mem := repository.NewMemoryStore()
		records = mem
		users = mem
	}

	// redis: stats cache, push tokens, upstream cache, last-sync, mindful stream
	var (
		redisClient *rediscommon.Client
		kv          *aggregator.RedisKVStore
		cache       *aggregator.CacheManager
		tokens      *notify.TokenStore
		upstream    external.Cache
		syncKV      service.SyncKV
	)
	redisClient = rediscommon.NewRedisClient(&cfg.Redis)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rediscommon.Ping(pingCtx, redisClient); err != nil {
		log.Warn("Redis unavailable, running without cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rediscommon.Close(redisClient)
		redisClient = nil
	} else {
		defer rediscommon.Close(redisClient)
		kv = aggregator.NewRedisKVStore(redisClient)
		cache = aggregator.NewCacheManager(kv, cfg.Stats.CacheTTL, log)
		tokens = notify.NewTokenStore(kv)
		upstream = kv
		syncKV = kv
	}
	pingCancel()

	// push notifications over MQTT
	var (
		badgeNotifier aggregator.BadgeNotifier
		reminder      service.Reminder
		tester        service.TestSender
	)
	if cfg.MQTT.Enabled || cfg.Reminder.Enabled {
		switch {
		case tokens == nil:
			log.Warn("Notifications need Redis for push tokens, disabled")
		default:
			mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, log)
			if err != nil {
				log.Warn("MQTT unavailable, notifications disabled", zap.Error(err))
				break
			}
			defer mqttClient.Disconnect()
			notifier := notify.NewMQTTNotifier(mqttClient, tokens, cfg.MQTT.QoS, log)
			badgeNotifier = notifier
			tester = notifier
			if cfg.Reminder.Enabled {
				reminder = notifier
			}
		}
	}

	// upstream APIs
	weather := external.NewWeatherClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout, upstream, cfg.Weather.CacheTTL, log)
	geocoder := external.NewGeocodingClient(cfg.Geocoding.BaseURL, cfg.Geocoding.APIKey, cfg.Geocoding.Timeout, upstream, log)
	sentiment := external.NewSentimentClient(cfg.Sentiment.BaseURL, cfg.Sentiment.APIKey, cfg.Sentiment.Timeout, log)
	enricher := external.NewEnricher(weather, geocoder, log)

	// derived state engine
	agg := aggregator.NewStatsAggregator(records, users, cache, badgeNotifier, log)
	moods := service.NewMoodService(records, agg, enricher, log)
	stats := service.NewStatsService(agg, log)
	syncSvc := service.NewSyncService(moods, records, agg, syncKV, cfg.Sync.MaxBatchSize, cfg.Sync.ItemTimeout, log)
	accounts := service.NewAccountService(records, agg, tokens, log)

	var mindful service.BackgroundConsumer
	if redisClient != nil {
		mindful = consumer.NewMindfulConsumer(
			redisClient,
			agg,
			log,
			cfg.Mindful.EventStream,
			cfg.Mindful.ConsumerGroup,
			cfg.Mindful.ConsumerName,
			int64(cfg.Mindful.BatchSize),
		)
	}
	reminderHour := -1
	if cfg.Reminder.Enabled {
		reminderHour = cfg.Reminder.Hour
	}
	engine := service.NewEngineService(agg, users, records, reminder, mindful, service.EngineConfig{
		SweepHour:    cfg.Stats.SweepHour,
		ReminderHour: reminderHour,
	}, log)

	router := httpapi.NewRouter(log)
	router.RegisterMoodRoutes(httpapi.NewMoodHandler(moods, log))
	router.RegisterStatsRoutes(httpapi.NewStatsHandler(stats, moods, log))
	router.RegisterSyncRoutes(httpapi.NewSyncHandler(syncSvc, log))
	router.RegisterExternalRoutes(httpapi.NewExternalHandler(weather, geocoder, sentiment, log))
	router.RegisterExportRoutes(httpapi.NewExportHandler(moods, log))
	router.RegisterAccountRoutes(httpapi.NewAccountHandler(accounts, log))
	router.RegisterNotificationRoutes(httpapi.NewNotificationHandler(service.NewNotificationService(tester, engine, log), log))

	server := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 2)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := engine.Start(ctx); err != nil {
			errChan <- fmt.Errorf("engine: %w", err)
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("Service error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", zap.Error(err))
	}

	log.Info("Service stopped")
}
