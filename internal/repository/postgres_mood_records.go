package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"moodweather/internal/domain"
)

// PostgresMoodRecordsRepository mood_records on PostgreSQL
type PostgresMoodRecordsRepository struct {
	db *sql.DB
}

// NewPostgresMoodRecordsRepository wraps an open pool
func NewPostgresMoodRecordsRepository(db *sql.DB) *PostgresMoodRecordsRepository {
	return &PostgresMoodRecordsRepository{db: db}
}

var _ MoodRecordsRepository = (*PostgresMoodRecordsRepository)(nil)

const moodRecordColumns = `
			entry_id::text,
			user_id,
			occurred_at,
			emojis,
			intensity,
			note,
			location,
			external_weather,
			client_timestamp,
			created_at,
			updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMoodRecord(row rowScanner) (*domain.MoodRecord, error) {
	var (
		rec             domain.MoodRecord
		emojis          []byte
		note            sql.NullString
		location        []byte
		weather         []byte
		clientTimestamp sql.NullTime
	)
	if err := row.Scan(
		&rec.EntryID,
		&rec.UserID,
		&rec.Timestamp,
		&emojis,
		&rec.Intensity,
		&note,
		&location,
		&weather,
		&clientTimestamp,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(emojis, &rec.Emojis); err != nil {
		return nil, fmt.Errorf("failed to decode emojis: %w", err)
	}
	if note.Valid {
		n := note.String
		rec.Note = &n
	}
	if len(location) > 0 {
		rec.Location = &domain.Location{}
		if err := json.Unmarshal(location, rec.Location); err != nil {
			return nil, fmt.Errorf("failed to decode location: %w", err)
		}
	}
	if len(weather) > 0 {
		rec.ExternalWeather = &domain.ExternalWeather{}
		if err := json.Unmarshal(weather, rec.ExternalWeather); err != nil {
			return nil, fmt.Errorf("failed to decode external_weather: %w", err)
		}
	}
	if clientTimestamp.Valid {
		ts := clientTimestamp.Time.UTC()
		rec.ClientTimestamp = &ts
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return &rec, nil
}

// nullableJSON marshals v, nil pointers become SQL NULL
func nullableJSON(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", domain.ErrStoreUnavailable, op, err)
}

// ListRecords records of a user ordered by occurred_at
func (r *PostgresMoodRecordsRepository) ListRecords(ctx context.Context, userID string, filter *RecordFilter) ([]*domain.MoodRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	where := []string{"user_id = $1"}
	args := []any{userID}
	argIdx := 2
	if filter != nil && filter.Start != nil {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", argIdx))
		args = append(args, filter.Start.UTC())
		argIdx++
	}
	if filter != nil && filter.End != nil {
		where = append(where, fmt.Sprintf("occurred_at <= $%d", argIdx))
		args = append(args, filter.End.UTC())
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM mood_records
		WHERE %s
		ORDER BY occurred_at ASC
	`, moodRecordColumns, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list mood records", err)
	}
	defer rows.Close()

	out := make([]*domain.MoodRecord, 0)
	for rows.Next() {
		rec, err := scanMoodRecord(rows)
		if err != nil {
			return nil, storeErr("scan mood record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate mood records", err)
	}
	return out, nil
}

// GetRecord by id within the user's partition
func (r *PostgresMoodRecordsRepository) GetRecord(ctx context.Context, userID, entryID string) (*domain.MoodRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM mood_records
		WHERE user_id = $1 AND entry_id::text = $2
	`, moodRecordColumns)

	rec, err := scanMoodRecord(r.db.QueryRowContext(ctx, query, userID, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: mood record %s", domain.ErrNotFound, entryID)
		}
		return nil, storeErr("get mood record", err)
	}
	return rec, nil
}

// FindRecordByTimestamp exact match on occurred_at; oldest row wins if duplicated
func (r *PostgresMoodRecordsRepository) FindRecordByTimestamp(ctx context.Context, userID string, ts time.Time) (*domain.MoodRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM mood_records
		WHERE user_id = $1 AND occurred_at = $2
		ORDER BY created_at ASC
		LIMIT 1
	`, moodRecordColumns)

	rec, err := scanMoodRecord(r.db.QueryRowContext(ctx, query, userID, ts.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no mood record at %s", domain.ErrNotFound, ts.UTC().Format(time.RFC3339Nano))
		}
		return nil, storeErr("find mood record by timestamp", err)
	}
	return rec, nil
}

// CreateRecord inserts a fully populated record
func (r *PostgresMoodRecordsRepository) CreateRecord(ctx context.Context, rec *domain.MoodRecord) error {
	emojis, err := json.Marshal(rec.Emojis)
	if err != nil {
		return fmt.Errorf("failed to encode emojis: %w", err)
	}
	location, err := nullableJSON(rec.Location, rec.Location == nil)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}
	weather, err := nullableJSON(rec.ExternalWeather, rec.ExternalWeather == nil)
	if err != nil {
		return fmt.Errorf("failed to encode external_weather: %w", err)
	}
	var clientTimestamp any
	if rec.ClientTimestamp != nil {
		clientTimestamp = rec.ClientTimestamp.UTC()
	}
	var note any
	if rec.Note != nil {
		note = *rec.Note
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO mood_records (
			entry_id, user_id, occurred_at, emojis, intensity, note,
			location, external_weather, client_timestamp, created_at, updated_at
		) VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11)
	`,
		rec.EntryID,
		rec.UserID,
		rec.Timestamp.UTC(),
		string(emojis),
		rec.Intensity,
		note,
		location,
		weather,
		clientTimestamp,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return storeErr("insert mood record", err)
	}
	return nil
}

// UpdateRecord builds a SET list from the non-nil fields of update
func (r *PostgresMoodRecordsRepository) UpdateRecord(ctx context.Context, userID, entryID string, update *domain.RecordUpdate) (*domain.MoodRecord, error) {
	if update == nil || update.IsEmpty() {
		return r.GetRecord(ctx, userID, entryID)
	}

	sets := []string{}
	args := []any{}
	argIdx := 1
	add := func(column string, value any, cast string) {
		sets = append(sets, fmt.Sprintf("%s = $%d%s", column, argIdx, cast))
		args = append(args, value)
		argIdx++
	}

	if update.Emojis != nil {
		b, err := json.Marshal(update.Emojis)
		if err != nil {
			return nil, fmt.Errorf("failed to encode emojis: %w", err)
		}
		add("emojis", string(b), "::jsonb")
	}
	if update.Intensity != nil {
		add("intensity", *update.Intensity, "")
	}
	if update.Note != nil {
		add("note", *update.Note, "")
	} else if update.ClearNote {
		sets = append(sets, "note = NULL")
	}
	if update.Location != nil {
		b, err := json.Marshal(update.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to encode location: %w", err)
		}
		add("location", string(b), "::jsonb")
	}
	if update.ClientTimestamp != nil {
		add("client_timestamp", update.ClientTimestamp.UTC(), "")
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	query := fmt.Sprintf(`
		UPDATE mood_records
		SET %s
		WHERE user_id = $%d AND entry_id::text = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argIdx, argIdx+1, moodRecordColumns)
	args = append(args, userID, entryID)

	rec, err := scanMoodRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: mood record %s", domain.ErrNotFound, entryID)
		}
		return nil, storeErr("update mood record", err)
	}
	return rec, nil
}

// DeleteRecord removes one row
func (r *PostgresMoodRecordsRepository) DeleteRecord(ctx context.Context, userID, entryID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM mood_records WHERE user_id = $1 AND entry_id::text = $2`,
		userID, entryID,
	)
	if err != nil {
		return storeErr("delete mood record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete mood record", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: mood record %s", domain.ErrNotFound, entryID)
	}
	return nil
}

// DeleteAllRecords removes every row of the user
func (r *PostgresMoodRecordsRepository) DeleteAllRecords(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mood_records WHERE user_id = $1`, userID)
	if err != nil {
		return 0, storeErr("delete mood records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("delete mood records", err)
	}
	return n, nil
}
