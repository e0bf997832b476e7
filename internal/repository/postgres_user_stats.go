package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"moodweather/internal/domain"
)

// PostgresUserStatsRepository user_stats on PostgreSQL
type PostgresUserStatsRepository struct {
	db *sql.DB
}

// NewPostgresUserStatsRepository wraps an open pool
func NewPostgresUserStatsRepository(db *sql.DB) *PostgresUserStatsRepository {
	return &PostgresUserStatsRepository{db: db}
}

var _ UserStatsRepository = (*PostgresUserStatsRepository)(nil)

// GetStats reads one row
func (r *PostgresUserStatsRepository) GetStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	query := `
		SELECT
			user_id,
			total_entries,
			current_streak,
			longest_streak,
			dominant_mood,
			average_intensity,
			weekly_rhythm,
			mindful_moments_count,
			unlocked_badges,
			last_updated
		FROM user_stats
		WHERE user_id = $1
	`

	var (
		s        domain.UserStats
		dominant sql.NullString
		rhythm   []byte
		badges   []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID,
		&s.TotalEntries,
		&s.CurrentStreak,
		&s.LongestStreak,
		&dominant,
		&s.AverageIntensity,
		&rhythm,
		&s.MindfulMomentsCount,
		&badges,
		&s.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: stats for user %s", domain.ErrNotFound, userID)
		}
		return nil, storeErr("get user stats", err)
	}

	if dominant.Valid {
		d := dominant.String
		s.DominantMood = &d
	}
	if len(rhythm) > 0 {
		if err := json.Unmarshal(rhythm, &s.WeeklyRhythm); err != nil {
			return nil, fmt.Errorf("failed to decode weekly_rhythm: %w", err)
		}
	}
	s.UnlockedBadges = []string{}
	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &s.UnlockedBadges); err != nil {
			return nil, fmt.Errorf("failed to decode unlocked_badges: %w", err)
		}
	}
	s.LastUpdated = s.LastUpdated.UTC()
	return &s, nil
}

// PutStats upserts the whole row in one statement.
// mindful_moments_count never moves backwards even if an increment landed mid-recompute.
func (r *PostgresUserStatsRepository) PutStats(ctx context.Context, stats *domain.UserStats) error {
	rhythm, err := json.Marshal(stats.WeeklyRhythm)
	if err != nil {
		return fmt.Errorf("failed to encode weekly_rhythm: %w", err)
	}
	badges := stats.UnlockedBadges
	if badges == nil {
		badges = []string{}
	}
	badgesJSON, err := json.Marshal(badges)
	if err != nil {
		return fmt.Errorf("failed to encode unlocked_badges: %w", err)
	}
	var dominant any
	if stats.DominantMood != nil {
		dominant = *stats.DominantMood
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_stats (
			user_id, total_entries, current_streak, longest_streak, dominant_mood,
			average_intensity, weekly_rhythm, mindful_moments_count, unlocked_badges, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9::jsonb, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			total_entries = EXCLUDED.total_entries,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			dominant_mood = EXCLUDED.dominant_mood,
			average_intensity = EXCLUDED.average_intensity,
			weekly_rhythm = EXCLUDED.weekly_rhythm,
			mindful_moments_count = GREATEST(user_stats.mindful_moments_count, EXCLUDED.mindful_moments_count),
			unlocked_badges = user_stats.unlocked_badges || COALESCE((
				SELECT jsonb_agg(b.id ORDER BY b.ord)
				FROM jsonb_array_elements(EXCLUDED.unlocked_badges) WITH ORDINALITY AS b(id, ord)
				WHERE NOT user_stats.unlocked_badges @> jsonb_build_array(b.id)
			), '[]'::jsonb),
			last_updated = EXCLUDED.last_updated
	`,
		stats.UserID,
		stats.TotalEntries,
		stats.CurrentStreak,
		stats.LongestStreak,
		dominant,
		stats.AverageIntensity,
		string(rhythm),
		stats.MindfulMomentsCount,
		string(badgesJSON),
		stats.LastUpdated.UTC(),
	)
	if err != nil {
		return storeErr("upsert user stats", err)
	}
	return nil
}

// IncrementMindfulMoments creates a stale row when missing so the next read recomputes
func (r *PostgresUserStatsRepository) IncrementMindfulMoments(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_stats (user_id, mindful_moments_count, weekly_rhythm, unlocked_badges, last_updated)
		VALUES ($1, 1, '{}'::jsonb, '[]'::jsonb, 'epoch')
		ON CONFLICT (user_id) DO UPDATE SET
			mindful_moments_count = user_stats.mindful_moments_count + 1
		RETURNING mindful_moments_count
	`, userID).Scan(&count)
	if err != nil {
		return 0, storeErr("increment mindful moments", err)
	}
	return count, nil
}

// DeleteStats removes the row; missing rows are not an error
func (r *PostgresUserStatsRepository) DeleteStats(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_stats WHERE user_id = $1`, userID); err != nil {
		return storeErr("delete user stats", err)
	}
	return nil
}

// ListUserIDs union of users with stats or records
func (r *PostgresUserStatsRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM user_stats
		UNION
		SELECT DISTINCT user_id FROM mood_records
		ORDER BY 1
	`)
	if err != nil {
		return nil, storeErr("list user ids", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan user id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate user ids", err)
	}
	return ids, nil
}
