package service

import (
	"context"
	"fmt"

	"moodweather/internal/aggregator"
	"moodweather/internal/domain"
	"moodweather/internal/metrics"

	"go.uber.org/zap"
)

// StatsService user-facing stats reads and the mindful-moment counter
type StatsService struct {
	aggregator *aggregator.StatsAggregator
	logger     *zap.Logger
}

func NewStatsService(agg *aggregator.StatsAggregator, logger *zap.Logger) *StatsService {
	return &StatsService{aggregator: agg, logger: logger}
}

// UserStats staleness-checked read
func (s *StatsService) UserStats(ctx context.Context, callerID, userID string) (*domain.UserStats, error) {
	if userID != callerID {
		return nil, fmt.Errorf("%w: you can only view your own statistics", domain.ErrOwnership)
	}
	return s.aggregator.EnsureFresh(ctx, userID)
}

// Recalculate explicit recompute
func (s *StatsService) Recalculate(ctx context.Context, callerID, userID string) (*domain.UserStats, error) {
	if userID != callerID {
		return nil, fmt.Errorf("%w: you can only recalculate your own statistics", domain.ErrOwnership)
	}
	return s.aggregator.Recompute(ctx, userID)
}

// Challenges badge catalog with per-user status and progress
func (s *StatsService) Challenges(ctx context.Context, callerID string) (*domain.ChallengesView, error) {
	stats, err := s.aggregator.EnsureFresh(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenges: %w", err)
	}
	signals, err := s.aggregator.Signals(ctx, callerID, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenges: %w", err)
	}
	view := aggregator.BuildChallenges(stats, signals)
	return &view, nil
}

// CompleteMindfulMoment one finished breathing or meditation session
func (s *StatsService) CompleteMindfulMoment(ctx context.Context, callerID string) (*domain.UserStats, error) {
	stats, err := s.aggregator.IncrementMindfulMoments(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to record mindful moment: %w", err)
	}
	metrics.RecordMindfulEvent("http")
	return stats, nil
}
