package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moodweather/internal/domain"
	"moodweather/internal/repository"

	"go.uber.org/zap"
)

// FreshnessChecker staleness-triggered recompute
type FreshnessChecker interface {
	EnsureFresh(ctx context.Context, userID string) (*domain.UserStats, error)
	GetStats(ctx context.Context, userID string) (*domain.UserStats, error)
}

// Reminder daily push for users who have not logged today
type Reminder interface {
	SendReminder(ctx context.Context, userID string, stats *domain.UserStats) (bool, error)
}

// BackgroundConsumer long-running stream reader
type BackgroundConsumer interface {
	Start(ctx context.Context) error
}

// EngineConfig hours are UTC; -1 disables the job
type EngineConfig struct {
	SweepHour    int
	ReminderHour int
	TickInterval time.Duration
}

// EngineService background jobs: daily stale sweep, daily reminders, mindful stream consumer
type EngineService struct {
	stats    FreshnessChecker
	users    repository.UserStatsRepository
	records  repository.MoodRecordsRepository
	reminder Reminder           // optional
	consumer BackgroundConsumer // optional
	cfg      EngineConfig
	logger   *zap.Logger

	now          func() time.Time
	lastSweep    time.Time
	lastReminder time.Time
}

func NewEngineService(
	stats FreshnessChecker,
	users repository.UserStatsRepository,
	records repository.MoodRecordsRepository,
	reminder Reminder,
	consumer BackgroundConsumer,
	cfg EngineConfig,
	logger *zap.Logger,
) *EngineService {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	return &EngineService{
		stats:    stats,
		users:    users,
		records:  records,
		reminder: reminder,
		consumer: consumer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides time.Now
func (s *EngineService) SetClock(now func() time.Time) {
	s.now = now
}

// Start blocks until ctx is cancelled
func (s *EngineService) Start(ctx context.Context) error {
	s.logger.Info("Starting engine service",
		zap.Int("sweep_hour", s.cfg.SweepHour),
		zap.Int("reminder_hour", s.cfg.ReminderHour),
		zap.Bool("mindful_consumer", s.consumer != nil),
	)

	if s.consumer != nil {
		go func() {
			if err := s.consumer.Start(ctx); err != nil {
				s.logger.Error("Mindful consumer stopped", zap.Error(err))
			}
		}()
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs each job at most once per UTC day, on the first tick inside its hour
func (s *EngineService) tick(ctx context.Context) {
	now := s.now().UTC()
	today := domain.TruncateDay(now)

	if s.cfg.SweepHour >= 0 && now.Hour() == s.cfg.SweepHour && s.lastSweep.Before(today) {
		s.lastSweep = today
		if _, err := s.SweepStale(ctx); err != nil {
			s.logger.Error("Stale stats sweep failed", zap.Error(err))
		}
	}

	if s.reminder != nil && s.cfg.ReminderHour >= 0 && now.Hour() == s.cfg.ReminderHour && s.lastReminder.Before(today) {
		s.lastReminder = today
		if _, err := s.SendReminders(ctx); err != nil {
			s.logger.Error("Daily reminders failed", zap.Error(err))
		}
	}
}

// SweepStale refreshes every user whose stats were computed before today so
// expired streaks reset without waiting for a read. Returns users checked.
func (s *EngineService) SweepStale(ctx context.Context) (int, error) {
	userIDs, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	successCount := 0
	errorCount := 0
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			return successCount, ctx.Err()
		default:
		}
		if _, err := s.stats.EnsureFresh(ctx, userID); err != nil {
			s.logger.Error("Failed to refresh user stats", zap.String("user_id", userID), zap.Error(err))
			errorCount++
			continue
		}
		successCount++
	}

	s.logger.Info("Completed stale stats sweep",
		zap.Int("success_count", successCount),
		zap.Int("error_count", errorCount),
	)
	return successCount, nil
}

// ErrNotificationsDisabled no push transport is wired (MQTT or Redis missing)
var ErrNotificationsDisabled = fmt.Errorf("%w: notifications are disabled", domain.ErrStoreUnavailable)

// Reminder outcomes
const (
	ReminderSent    = "sent"
	ReminderSkipped = "skipped"
)

// ReminderResult outcome of a single-user reminder run
type ReminderResult struct {
	UserID  string `json:"userId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendReminders pushes one reminder to each user without a record today. Returns messages published.
func (s *EngineService) SendReminders(ctx context.Context) (int, error) {
	if s.reminder == nil {
		return 0, nil
	}
	userIDs, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	sent := 0
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}

		res, err := s.remind(ctx, userID)
		if err != nil {
			s.logger.Warn("Failed to send reminder", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if res.Status == ReminderSent {
			sent++
		}
	}

	s.logger.Info("Daily reminders sent", zap.Int("sent", sent), zap.Int("users", len(userIDs)))
	return sent, nil
}

// RemindUser runs the daily reminder for one user now
func (s *EngineService) RemindUser(ctx context.Context, userID string) (*ReminderResult, error) {
	if s.reminder == nil {
		return nil, ErrNotificationsDisabled
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	return s.remind(ctx, userID)
}

func (s *EngineService) remind(ctx context.Context, userID string) (*ReminderResult, error) {
	start := domain.TruncateDay(s.now())
	todays, err := s.records.ListRecords(ctx, userID, &repository.RecordFilter{Start: &start})
	if err != nil {
		return nil, fmt.Errorf("failed to check today's records: %w", err)
	}
	if len(todays) > 0 {
		return &ReminderResult{UserID: userID, Status: ReminderSkipped, Message: "User already logged today"}, nil
	}

	stats, err := s.stats.GetStats(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to read stats for reminder: %w", err)
	}
	ok, err := s.reminder.SendReminder(ctx, userID, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to send reminder: %w", err)
	}
	if !ok {
		return &ReminderResult{UserID: userID, Status: ReminderSkipped, Message: "No push token registered"}, nil
	}
	return &ReminderResult{UserID: userID, Status: ReminderSent, Message: "Reminder sent"}, nil
}
