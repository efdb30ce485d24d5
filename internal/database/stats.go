package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/franckalain/wellness/internal/models"
)

// GetDailyStats returns ErrNotFound when nothing was recorded for date.
func (s *SQLiteDB) GetDailyStats(ctx context.Context, userID, date string) (*models.DailyStats, error) {
	query := `
		SELECT user_id, date, calories, steps, water, sleep_hours
		FROM daily_stats WHERE user_id = ? AND date = ?
	`

	st := &models.DailyStats{}
	err := s.db.QueryRowContext(ctx, query, userID, date).Scan(
		&st.UserID, &st.Date, &st.Calories, &st.Steps, &st.Water, &st.SleepHours,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// UpsertDailyStats writes the full record for (user, date).
func (s *SQLiteDB) UpsertDailyStats(ctx context.Context, st *models.DailyStats) error {
	query := `
		INSERT INTO daily_stats (user_id, date, calories, steps, water, sleep_hours)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			calories = excluded.calories,
			steps = excluded.steps,
			water = excluded.water,
			sleep_hours = excluded.sleep_hours
	`
	_, err := s.db.ExecContext(ctx, query, st.UserID, st.Date, st.Calories, st.Steps, st.Water, st.SleepHours)
	return err
}

// ListDailyStats returns the most recent days first.
func (s *SQLiteDB) ListDailyStats(ctx context.Context, userID string, limit int) ([]*models.DailyStats, error) {
	query := `
		SELECT user_id, date, calories, steps, water, sleep_hours
		FROM daily_stats WHERE user_id = ?
		ORDER BY date DESC
		LIMIT ?
	`

	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.DailyStats
	for rows.Next() {
		var st models.DailyStats
		if err := rows.Scan(&st.UserID, &st.Date, &st.Calories, &st.Steps, &st.Water, &st.SleepHours); err != nil {
			return nil, err
		}
		results = append(results, &st)
	}
	return results, rows.Err()
}
