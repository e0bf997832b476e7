package service

import (
	"context"
	"fmt"
	"time"

	"moodweather/internal/domain"
	"moodweather/internal/external"
	"moodweather/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatsRecomputer triggered once after every successful record write
type StatsRecomputer interface {
	Recompute(ctx context.Context, userID string) (*domain.UserStats, error)
}

// MoodService mood record CRUD; every write is followed by exactly one recompute
type MoodService struct {
	records  repository.MoodRecordsRepository
	stats    StatsRecomputer
	enricher *external.Enricher // optional
	logger   *zap.Logger

	now func() time.Time
}

// NewMoodService enricher may be nil
func NewMoodService(
	records repository.MoodRecordsRepository,
	stats StatsRecomputer,
	enricher *external.Enricher,
	logger *zap.Logger,
) *MoodService {
	return &MoodService{
		records:  records,
		stats:    stats,
		enricher: enricher,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides time.Now
func (s *MoodService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateMood validates, enriches and stores a new record owned by callerID
func (s *MoodService) CreateMood(ctx context.Context, callerID string, rec *domain.MoodRecord) (*domain.MoodRecord, error) {
	if rec.UserID == "" {
		rec.UserID = callerID
	}
	if rec.UserID != callerID {
		return nil, fmt.Errorf("%w: you can only create moods for yourself", domain.ErrOwnership)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if s.enricher != nil {
		s.enricher.Enrich(ctx, rec)
	}
	return s.create(ctx, rec)
}

// create assigns server fields and persists an already validated record
func (s *MoodService) create(ctx context.Context, rec *domain.MoodRecord) (*domain.MoodRecord, error) {
	now := s.now().UTC()
	rec.EntryID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.records.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create mood: %w", err)
	}
	s.logger.Info("Mood created",
		zap.String("user_id", rec.UserID),
		zap.String("entry_id", rec.EntryID),
		zap.Strings("emojis", rec.Emojis),
	)

	s.recompute(ctx, rec.UserID)
	return rec, nil
}

// GetMood records of other users are reported as not found
func (s *MoodService) GetMood(ctx context.Context, callerID, entryID string) (*domain.MoodRecord, error) {
	rec, err := s.records.GetRecord(ctx, callerID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mood: %w", err)
	}
	return rec, nil
}

// UpdateMood applies a partial update to one of the caller's records
func (s *MoodService) UpdateMood(ctx context.Context, callerID, entryID string, update *domain.RecordUpdate) (*domain.MoodRecord, error) {
	if update == nil || update.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}
	if err := domain.ValidateUpdate(update); err != nil {
		return nil, err
	}
	return s.update(ctx, callerID, entryID, update)
}

func (s *MoodService) update(ctx context.Context, userID, entryID string, update *domain.RecordUpdate) (*domain.MoodRecord, error) {
	rec, err := s.records.UpdateRecord(ctx, userID, entryID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update mood: %w", err)
	}
	s.logger.Info("Mood updated", zap.String("user_id", userID), zap.String("entry_id", entryID))

	s.recompute(ctx, userID)
	return rec, nil
}

// DeleteMood removes one of the caller's records
func (s *MoodService) DeleteMood(ctx context.Context, callerID, entryID string) error {
	if err := s.records.DeleteRecord(ctx, callerID, entryID); err != nil {
		return fmt.Errorf("failed to delete mood: %w", err)
	}
	s.logger.Info("Mood deleted", zap.String("user_id", callerID), zap.String("entry_id", entryID))

	s.recompute(ctx, callerID)
	return nil
}

// recompute failures leave the previous stats in place; the next write or
// staleness check repairs them
func (s *MoodService) recompute(ctx context.Context, userID string) {
	if _, err := s.stats.Recompute(ctx, userID); err != nil {
		s.logger.Warn("Stats recompute after write failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ListMoodsRequest list query; zero Limit means the default page size
type ListMoodsRequest struct {
	CallerID  string
	UserID    string // optional, must equal CallerID
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ListMoodsResponse newest first
type ListMoodsResponse struct {
	Items   []*domain.MoodRecord `json:"items"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"hasMore"`
}

// ListMoods date-range filter with limit/offset pagination
func (s *MoodService) ListMoods(ctx context.Context, req ListMoodsRequest) (*ListMoodsResponse, error) {
	if req.UserID == "" {
		req.UserID = req.CallerID
	}
	if req.UserID != req.CallerID {
		return nil, fmt.Errorf("%w: you can only view your own moods", domain.ErrOwnership)
	}
	if req.Limit == 0 {
		req.Limit = defaultListLimit
	}
	if req.Limit < 1 || req.Limit > maxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxListLimit)
	}
	if req.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrValidation)
	}

	records, err := s.records.ListRecords(ctx, req.UserID, &repository.RecordFilter{
		Start: req.StartDate,
		End:   req.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list moods: %w", err)
	}

	total := len(records)
	items := make([]*domain.MoodRecord, 0, req.Limit)
	for i := total - 1 - req.Offset; i >= 0 && len(items) < req.Limit; i-- {
		items = append(items, records[i])
	}

	return &ListMoodsResponse{
		Items:   items,
		Total:   total,
		Limit:   req.Limit,
		Offset:  req.Offset,
		HasMore: req.Offset+req.Limit < total,
	}, nil
}

// Calendar one entry per UTC day of the month, taken from that day's latest record
func (s *MoodService) Calendar(ctx context.Context, callerID, userID string, year, month int) (*domain.CalendarMonth, error) {
	if userID != callerID {
		return nil, fmt.Errorf("%w: you can only view your own calendar", domain.ErrOwnership)
	}
	if year < 2020 || year > 2100 {
		return nil, fmt.Errorf("%w: year must be between 2020 and 2100", domain.ErrValidation)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", domain.ErrValidation)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	records, err := s.records.ListRecords(ctx, userID, &repository.RecordFilter{Start: &start, End: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}

	days := make(map[string]domain.CalendarDay)
	// ascending order, so later records overwrite earlier ones
	for _, r := range records {
		days[r.Day().Format("2006-01-02")] = domain.CalendarDay{
			Emojis:    r.Emojis,
			Intensity: r.Intensity,
			HasNote:   r.HasNote(),
		}
	}
	return &domain.CalendarMonth{Year: year, Month: month, Days: days}, nil
}

// AllMoods every record of the caller, newest first (exports)
func (s *MoodService) AllMoods(ctx context.Context, callerID string, start, end *time.Time) ([]*domain.MoodRecord, error) {
	records, err := s.records.ListRecords(ctx, callerID, &repository.RecordFilter{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("failed to list moods: %w", err)
	}
	out := make([]*domain.MoodRecord, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out, nil
}
