package database

import (
	"context"
	"time"

	"github.com/franckalain/wellness/internal/models"
	"github.com/google/uuid"
)

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func stamp(ts *int64) {
	if *ts == 0 {
		*ts = time.Now().UnixMilli()
	}
}

// AddFood inserts a food entry, assigning an id and timestamp when missing.
func (s *SQLiteDB) AddFood(ctx context.Context, e *models.FoodEntry) error {
	newID(&e.ID)
	stamp(&e.Timestamp)

	query := `
		INSERT INTO food_entries (
			id, user_id, name, image_uri, calories, protein, fat, carbs,
			rating, recommendation, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Name, e.ImageURI,
		e.Macros.Calories, e.Macros.Protein, e.Macros.Fat, e.Macros.Carbs,
		models.ClampRating(e.Rating), e.Recommendation, e.Timestamp,
	)
	return err
}

// UpdateFood rewrites an existing entry owned by e.UserID. A zero
// timestamp keeps the stored one.
func (s *SQLiteDB) UpdateFood(ctx context.Context, e *models.FoodEntry) error {
	query := `
		UPDATE food_entries
		SET name = ?, image_uri = ?, calories = ?, protein = ?, fat = ?, carbs = ?,
			rating = ?, recommendation = ?, timestamp = COALESCE(NULLIF(?, 0), timestamp)
		WHERE id = ? AND user_id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		e.Name, e.ImageURI, e.Macros.Calories, e.Macros.Protein, e.Macros.Fat, e.Macros.Carbs,
		models.ClampRating(e.Rating), e.Recommendation, e.Timestamp,
		e.ID, e.UserID,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *SQLiteDB) DeleteFood(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM food_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// ListFood returns entries newest first.
func (s *SQLiteDB) ListFood(ctx context.Context, userID string, r TimeRange) ([]*models.FoodEntry, error) {
	clause, args := r.where("timestamp")
	query := `
		SELECT id, user_id, name, image_uri, calories, protein, fat, carbs,
			rating, recommendation, timestamp
		FROM food_entries WHERE user_id = ?` + clause + `
		ORDER BY timestamp DESC` + r.limit()

	rows, err := s.db.QueryContext(ctx, query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.FoodEntry
	for rows.Next() {
		var e models.FoodEntry
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Name, &e.ImageURI,
			&e.Macros.Calories, &e.Macros.Protein, &e.Macros.Fat, &e.Macros.Carbs,
			&e.Rating, &e.Recommendation, &e.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, &e)
	}
	return results, rows.Err()
}

func (s *SQLiteDB) AddActivity(ctx context.Context, e *models.ActivityEntry) error {
	newID(&e.ID)
	stamp(&e.Timestamp)

	query := `
		INSERT INTO activity_entries (id, user_id, type, duration_minutes, calories_burned, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, e.ID, e.UserID, e.Type, e.DurationMinutes, e.CaloriesBurned, e.Timestamp)
	return err
}

func (s *SQLiteDB) ListActivities(ctx context.Context, userID string, r TimeRange) ([]*models.ActivityEntry, error) {
	clause, args := r.where("timestamp")
	query := `
		SELECT id, user_id, type, duration_minutes, calories_burned, timestamp
		FROM activity_entries WHERE user_id = ?` + clause + `
		ORDER BY timestamp DESC` + r.limit()

	rows, err := s.db.QueryContext(ctx, query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.DurationMinutes, &e.CaloriesBurned, &e.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, &e)
	}
	return results, rows.Err()
}

func (s *SQLiteDB) AddSleep(ctx context.Context, e *models.SleepEntry) error {
	newID(&e.ID)
	stamp(&e.Timestamp)

	query := `
		INSERT INTO sleep_entries (id, user_id, duration_hours, quality, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, e.ID, e.UserID, e.DurationHours, models.ClampRating(e.Quality), e.Timestamp)
	return err
}

func (s *SQLiteDB) ListSleep(ctx context.Context, userID string, r TimeRange) ([]*models.SleepEntry, error) {
	clause, args := r.where("timestamp")
	query := `
		SELECT id, user_id, duration_hours, quality, timestamp
		FROM sleep_entries WHERE user_id = ?` + clause + `
		ORDER BY timestamp DESC` + r.limit()

	rows, err := s.db.QueryContext(ctx, query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.SleepEntry
	for rows.Next() {
		var e models.SleepEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.DurationHours, &e.Quality, &e.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, &e)
	}
	return results, rows.Err()
}
