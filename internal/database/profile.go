package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/franckalain/wellness/internal/models"
)

// GetProfile returns ErrNotFound when the user has no profile yet.
func (s *SQLiteDB) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT user_id, name, height, weight, age, gender, goal, activity_level,
			daily_calorie_goal, daily_step_goal, allergies, preferences, health_conditions
		FROM profiles WHERE user_id = ?
	`

	p := &models.UserProfile{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Name, &p.Height, &p.Weight, &p.Age, &p.Gender, &p.Goal, &p.ActivityLevel,
		&p.DailyCalorieGoal, &p.DailyStepGoal, &p.Allergies, &p.Preferences, &p.HealthConditions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SaveProfile validates and upserts a profile.
func (s *SQLiteDB) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (
			user_id, name, height, weight, age, gender, goal, activity_level,
			daily_calorie_goal, daily_step_goal, allergies, preferences, health_conditions, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			height = excluded.height,
			weight = excluded.weight,
			age = excluded.age,
			gender = excluded.gender,
			goal = excluded.goal,
			activity_level = excluded.activity_level,
			daily_calorie_goal = excluded.daily_calorie_goal,
			daily_step_goal = excluded.daily_step_goal,
			allergies = excluded.allergies,
			preferences = excluded.preferences,
			health_conditions = excluded.health_conditions,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		p.UserID, p.Name, p.Height, p.Weight, p.Age, p.Gender, p.Goal, p.ActivityLevel,
		p.DailyCalorieGoal, p.DailyStepGoal, p.Allergies, p.Preferences, p.HealthConditions,
		time.Now().UnixMilli(),
	)
	return err
}

// GetSettings returns ErrNotFound when the user never saved settings.
func (s *SQLiteDB) GetSettings(ctx context.Context, userID string) (*models.Settings, error) {
	query := `SELECT user_id, water_goal, meal_reminders, sleep FROM settings WHERE user_id = ?`

	st := &models.Settings{}
	var reminders, sleep string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&st.UserID, &st.WaterGoal, &reminders, &sleep)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reminders), &st.MealReminders); err != nil {
		return nil, fmt.Errorf("error decoding meal reminders: %w", err)
	}
	if err := json.Unmarshal([]byte(sleep), &st.Sleep); err != nil {
		return nil, fmt.Errorf("error decoding sleep config: %w", err)
	}
	return st, nil
}

func (s *SQLiteDB) SaveSettings(ctx context.Context, st *models.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	reminders, err := json.Marshal(st.MealReminders)
	if err != nil {
		return err
	}
	sleep, err := json.Marshal(st.Sleep)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO settings (user_id, water_goal, meal_reminders, sleep, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			water_goal = excluded.water_goal,
			meal_reminders = excluded.meal_reminders,
			sleep = excluded.sleep,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, st.UserID, st.WaterGoal, string(reminders), string(sleep), time.Now().UnixMilli())
	return err
}

// GetRoadmap returns ErrNotFound when no roadmap was generated yet.
func (s *SQLiteDB) GetRoadmap(ctx context.Context, userID string) (*models.Roadmap, error) {
	query := `
		SELECT user_id, steps, daily_calories, daily_water, daily_steps, sleep_hours, updated_at
		FROM roadmaps WHERE user_id = ?
	`

	r := &models.Roadmap{}
	var steps string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&r.UserID, &steps,
		&r.Targets.DailyCalories, &r.Targets.DailyWater, &r.Targets.DailySteps, &r.Targets.SleepHours,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
		return nil, fmt.Errorf("error decoding roadmap steps: %w", err)
	}
	r.UpdatedAt = time.UnixMilli(updatedAt)
	return r, nil
}

// ReplaceRoadmap overwrites the whole roadmap of a user.
func (s *SQLiteDB) ReplaceRoadmap(ctx context.Context, r *models.Roadmap) error {
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return err
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}

	query := `
		INSERT OR REPLACE INTO roadmaps (
			user_id, steps, daily_calories, daily_water, daily_steps, sleep_hours, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.UserID, string(steps),
		r.Targets.DailyCalories, r.Targets.DailyWater, r.Targets.DailySteps, r.Targets.SleepHours,
		r.UpdatedAt.UnixMilli(),
	)
	return err
}
