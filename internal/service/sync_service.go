package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moodweather/internal/domain"
	"moodweather/internal/metrics"
	"moodweather/internal/repository"

	"go.uber.org/zap"
)

// SyncKV last-sync bookkeeping (Redis in production)
type SyncKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// StatsReader plain stats read
type StatsReader interface {
	GetStats(ctx context.Context, userID string) (*domain.UserStats, error)
}

// SyncService reconciles offline-authored batches against server records.
// Items are matched on exact occurrence timestamp only; two records of one
// user cannot share a timestamp.
type SyncService struct {
	moods        *MoodService
	records      repository.MoodRecordsRepository
	stats        StatsReader
	kv           SyncKV // optional
	maxBatchSize int
	itemTimeout  time.Duration
	logger       *zap.Logger
}

func NewSyncService(
	moods *MoodService,
	records repository.MoodRecordsRepository,
	stats StatsReader,
	kv SyncKV,
	maxBatchSize int,
	itemTimeout time.Duration,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		moods:        moods,
		records:      records,
		stats:        stats,
		kv:           kv,
		maxBatchSize: maxBatchSize,
		itemTimeout:  itemTimeout,
		logger:       logger,
	}
}

func lastSyncKey(userID string) string {
	return fmt.Sprintf("moodweather:last-sync:%s", userID)
}

// Reconcile processes items sequentially in order; a failing item never aborts its siblings
func (s *SyncService) Reconcile(ctx context.Context, callerID string, items []domain.SyncItem) (*domain.SyncReport, error) {
	if len(items) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d items, maximum is %d", domain.ErrBatchTooLarge, len(items), s.maxBatchSize)
	}

	report := &domain.SyncReport{
		Results:        make([]domain.SyncResult, 0, len(items)),
		TotalProcessed: len(items),
	}
	for i := range items {
		result := s.reconcileItem(ctx, callerID, &items[i])
		metrics.RecordSyncItem(result.Status)

		switch result.Status {
		case domain.SyncStatusCreated, domain.SyncStatusUpdated:
			report.SuccessCount++
		case domain.SyncStatusError:
			report.ErrorCount++
			s.logger.Warn("Sync item failed",
				zap.String("user_id", callerID),
				zap.String("local_id", result.LocalID),
				zap.String("message", result.Message),
			)
		}
		report.Results = append(report.Results, result)
	}

	s.logger.Info("Sync batch reconciled",
		zap.String("user_id", callerID),
		zap.Int("total", report.TotalProcessed),
		zap.Int("success_count", report.SuccessCount),
		zap.Int("error_count", report.ErrorCount),
	)

	if s.kv != nil && len(items) > 0 {
		now := s.moods.now().UTC().Format(time.RFC3339Nano)
		if err := s.kv.Set(ctx, lastSyncKey(callerID), now, 0); err != nil {
			s.logger.Warn("Failed to record last sync time", zap.String("user_id", callerID), zap.Error(err))
		}
	}
	return report, nil
}

func (s *SyncService) reconcileItem(ctx context.Context, callerID string, item *domain.SyncItem) domain.SyncResult {
	ctx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()

	result := domain.SyncResult{LocalID: item.LocalID}
	fail := func(err error) domain.SyncResult {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("item timed out after %s: %w", s.itemTimeout, err)
		}
		result.Status = domain.SyncStatusError
		result.Message = err.Error()
		return result
	}

	if item.UserID != callerID {
		return fail(fmt.Errorf("%w: user ID mismatch", domain.ErrOwnership))
	}
	if item.Timestamp.IsZero() || item.ClientTimestamp.IsZero() {
		return fail(fmt.Errorf("%w: timestamp and clientTimestamp are required", domain.ErrValidation))
	}
	candidate := item.ToRecord()
	if err := candidate.Validate(); err != nil {
		return fail(err)
	}

	existing, err := s.records.FindRecordByTimestamp(ctx, callerID, candidate.Timestamp)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fail(err)
	}

	switch {
	case existing == nil:
		created, err := s.moods.create(ctx, candidate)
		if err != nil {
			return fail(err)
		}
		result.ServerID = created.EntryID
		result.Status = domain.SyncStatusCreated

	case existing.ClientTimestamp != nil && !candidate.ClientTimestamp.After(*existing.ClientTimestamp):
		// server copy is as new or newer
		result.ServerID = existing.EntryID
		result.Status = domain.SyncStatusConflict

	default:
		if _, err := s.moods.update(ctx, callerID, existing.EntryID, overwriteFrom(candidate)); err != nil {
			return fail(err)
		}
		result.ServerID = existing.EntryID
		result.Status = domain.SyncStatusUpdated
	}

	serverTS := s.moods.now().UTC()
	result.ServerTimestamp = &serverTS
	return result
}

// overwriteFrom incoming item replaces the mutable fields; a missing location keeps the stored one
func overwriteFrom(candidate *domain.MoodRecord) *domain.RecordUpdate {
	intensity := candidate.Intensity
	return &domain.RecordUpdate{
		Emojis:          candidate.Emojis,
		Intensity:       &intensity,
		Note:            candidate.Note,
		ClearNote:       candidate.Note == nil,
		Location:        candidate.Location,
		ClientTimestamp: candidate.ClientTimestamp,
	}
}

// Status last successful reconcile time and current entry count
func (s *SyncService) Status(ctx context.Context, callerID, userID string) (*domain.SyncStatus, error) {
	if userID != callerID {
		return nil, fmt.Errorf("%w: you can only view your own sync status", domain.ErrOwnership)
	}

	status := &domain.SyncStatus{UserID: userID}
	if s.kv != nil {
		raw, err := s.kv.Get(ctx, lastSyncKey(userID))
		if err == nil {
			if ts, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
				status.LastSync = &ts
			}
		}
	}

	stats, err := s.stats.GetStats(ctx, userID)
	switch {
	case err == nil:
		status.TotalEntries = stats.TotalEntries
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	return status, nil
}
