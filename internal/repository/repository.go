package repository

import (
	"context"
	"time"

	"moodweather/internal/domain"
)

// RecordFilter optional time window on occurred_at (inclusive)
type RecordFilter struct {
	Start *time.Time
	End   *time.Time
}

// Matches reports whether ts falls inside the window
func (f *RecordFilter) Matches(ts time.Time) bool {
	if f == nil {
		return true
	}
	if f.Start != nil && ts.Before(*f.Start) {
		return false
	}
	if f.End != nil && ts.After(*f.End) {
		return false
	}
	return true
}

// MoodRecordsRepository record store keyed by (userID, entryID).
// Not-found cases return domain.ErrNotFound; I/O failures wrap domain.ErrStoreUnavailable.
type MoodRecordsRepository interface {
	// ListRecords all records of a user (optionally windowed), ascending by occurrence time
	ListRecords(ctx context.Context, userID string, filter *RecordFilter) ([]*domain.MoodRecord, error)

	// GetRecord single record
	GetRecord(ctx context.Context, userID, entryID string) (*domain.MoodRecord, error)

	// FindRecordByTimestamp record whose occurrence time equals ts exactly
	FindRecordByTimestamp(ctx context.Context, userID string, ts time.Time) (*domain.MoodRecord, error)

	// CreateRecord inserts rec (EntryID and audit timestamps already assigned)
	CreateRecord(ctx context.Context, rec *domain.MoodRecord) error

	// UpdateRecord applies update and returns the stored result
	UpdateRecord(ctx context.Context, userID, entryID string, update *domain.RecordUpdate) (*domain.MoodRecord, error)

	// DeleteRecord removes one record
	DeleteRecord(ctx context.Context, userID, entryID string) error

	// DeleteAllRecords account erasure, returns the number of removed rows
	DeleteAllRecords(ctx context.Context, userID string) (int64, error)
}

// UserStatsRepository one stats row per user
type UserStatsRepository interface {
	// GetStats persisted stats or domain.ErrNotFound
	GetStats(ctx context.Context, userID string) (*domain.UserStats, error)

	// PutStats replaces the whole row in a single write
	PutStats(ctx context.Context, stats *domain.UserStats) error

	// IncrementMindfulMoments atomically bumps the counter, creating the row if needed
	IncrementMindfulMoments(ctx context.Context, userID string) (int, error)

	// DeleteStats account erasure
	DeleteStats(ctx context.Context, userID string) error

	// ListUserIDs every user with records or stats
	ListUserIDs(ctx context.Context) ([]string, error)
}
