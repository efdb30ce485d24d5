package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/models"
)

// defaultWeightKg is used when the user has no profile yet.
const defaultWeightKg = 70

// MET values per activity type.
var metValues = map[string]float64{
	"run":   9.8,
	"walk":  3.5,
	"gym":   6.0,
	"yoga":  2.5,
	"cycle": 7.5,
	"swim":  6.0,
}

var intensityFactors = map[string]float64{
	"low":    0.8,
	"medium": 1.0,
	"high":   1.2,
}

// ActivityInput describes a workout to log.
type ActivityInput struct {
	Type            string `json:"type"`
	Intensity       string `json:"intensity"`
	DurationMinutes int    `json:"durationMinutes"`
	Timestamp       int64  `json:"timestamp,omitempty"`
}

// CaloriesBurned is MET x intensity x weight x hours, rounded.
func CaloriesBurned(activity, intensity string, weightKg float64, minutes int) (int, error) {
	met, ok := metValues[activity]
	if !ok {
		return 0, fmt.Errorf("%w: unknown activity %q", ErrInvalidInput, activity)
	}
	if intensity == "" {
		intensity = "medium"
	}
	factor, ok := intensityFactors[intensity]
	if !ok {
		return 0, fmt.Errorf("%w: unknown intensity %q", ErrInvalidInput, intensity)
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	return int(math.Round(met * factor * weightKg * float64(minutes) / 60)), nil
}

// LogActivity computes calories from the profile weight and stores the workout.
func (t *Tracker) LogActivity(ctx context.Context, userID string, in ActivityInput) (*models.ActivityEntry, error) {
	weight := float64(defaultWeightKg)
	p, err := t.store.GetProfile(ctx, userID)
	switch {
	case err == nil && p.Weight > 0:
		weight = p.Weight
	case err != nil && !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	kcal, err := CaloriesBurned(in.Type, in.Intensity, weight, in.DurationMinutes)
	if err != nil {
		return nil, err
	}
	intensity := in.Intensity
	if intensity == "" {
		intensity = "medium"
	}
	e := &models.ActivityEntry{
		UserID:          userID,
		Type:            fmt.Sprintf("%s (%s)", in.Type, intensity),
		DurationMinutes: in.DurationMinutes,
		CaloriesBurned:  kcal,
		Timestamp:       in.Timestamp,
	}
	if e.Timestamp == 0 {
		e.Timestamp = t.now().UnixMilli()
	}
	if err := t.store.AddActivity(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save activity: %w", err)
	}
	return e, nil
}

// ListActivities returns today's workouts.
func (t *Tracker) ListActivities(ctx context.Context, userID string) ([]*models.ActivityEntry, error) {
	return t.store.ListActivities(ctx, userID, t.todayRange())
}

// LogSleep stores a night of sleep and copies its duration into today's stats.
func (t *Tracker) LogSleep(ctx context.Context, e *models.SleepEntry) (*models.SleepEntry, error) {
	if e.DurationHours <= 0 || e.DurationHours > 24 {
		return nil, fmt.Errorf("%w: sleep duration must be within (0, 24] hours", ErrInvalidInput)
	}
	e.Quality = models.ClampRating(e.Quality)
	if e.Timestamp == 0 {
		e.Timestamp = t.now().UnixMilli()
	}
	if err := t.store.AddSleep(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save sleep entry: %w", err)
	}
	if _, err := t.SetSleepHours(ctx, e.UserID, e.DurationHours); err != nil {
		return nil, err
	}
	return e, nil
}

// ListSleep returns the most recent sleep entries, newest first.
func (t *Tracker) ListSleep(ctx context.Context, userID string, limit int) ([]*models.SleepEntry, error) {
	return t.store.ListSleep(ctx, userID, database.TimeRange{Limit: limit})
}
