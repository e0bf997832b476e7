package service

import (
	"context"
	"fmt"

	"moodweather/internal/domain"
	"moodweather/internal/notify"
	"moodweather/internal/repository"

	"go.uber.org/zap"
)

// StatsForgetter drops derived state on account erasure
type StatsForgetter interface {
	Forget(ctx context.Context, userID string) error
}

// AccountService push-token registration and full account erasure
type AccountService struct {
	records repository.MoodRecordsRepository
	stats   StatsForgetter
	tokens  *notify.TokenStore // optional
	logger  *zap.Logger
}

func NewAccountService(
	records repository.MoodRecordsRepository,
	stats StatsForgetter,
	tokens *notify.TokenStore,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		records: records,
		stats:   stats,
		tokens:  tokens,
		logger:  logger,
	}
}

// RegisterPushToken last registration wins
func (s *AccountService) RegisterPushToken(ctx context.Context, callerID, token string) error {
	if s.tokens == nil {
		return fmt.Errorf("%w: notifications are disabled", domain.ErrStoreUnavailable)
	}
	if err := s.tokens.Register(ctx, callerID, token); err != nil {
		return err
	}
	s.logger.Info("Push token registered", zap.String("user_id", callerID))
	return nil
}

// DeleteAccount removes records, stats (badges and mindful count included) and the push token
func (s *AccountService) DeleteAccount(ctx context.Context, callerID, userID string) (int64, error) {
	if userID != callerID {
		return 0, fmt.Errorf("%w: you can only delete your own account", domain.ErrOwnership)
	}

	deleted, err := s.records.DeleteAllRecords(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	if err := s.stats.Forget(ctx, userID); err != nil {
		return deleted, fmt.Errorf("failed to delete stats: %w", err)
	}
	if s.tokens != nil {
		if err := s.tokens.Forget(ctx, userID); err != nil {
			s.logger.Warn("Failed to delete push token", zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.logger.Info("Account erased", zap.String("user_id", userID), zap.Int64("records_deleted", deleted))
	return deleted, nil
}
