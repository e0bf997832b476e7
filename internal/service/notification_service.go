package service

import (
	"context"
	"fmt"

	"moodweather/internal/domain"

	"go.uber.org/zap"
)

// TestSender publishes a fixed test push
type TestSender interface {
	SendTest(ctx context.Context, userID string) error
}

// NotificationService on-demand pushes: device check and the daily reminder for one user
type NotificationService struct {
	tester TestSender // optional
	engine *EngineService
	logger *zap.Logger
}

func NewNotificationService(tester TestSender, engine *EngineService, logger *zap.Logger) *NotificationService {
	return &NotificationService{tester: tester, engine: engine, logger: logger}
}

// SendTest returns domain.ErrNotFound when the caller has no push token
func (s *NotificationService) SendTest(ctx context.Context, callerID string) error {
	if s.tester == nil {
		return ErrNotificationsDisabled
	}
	if err := s.tester.SendTest(ctx, callerID); err != nil {
		return err
	}
	s.logger.Info("Test notification sent", zap.String("user_id", callerID))
	return nil
}

// SendReminder targetID defaults to the caller; only the caller can be reminded
func (s *NotificationService) SendReminder(ctx context.Context, callerID, targetID string) (*ReminderResult, error) {
	if targetID == "" {
		targetID = callerID
	}
	if targetID != callerID {
		return nil, fmt.Errorf("%w: you can only trigger your own reminder", domain.ErrOwnership)
	}
	return s.engine.RemindUser(ctx, targetID)
}
