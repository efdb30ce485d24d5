// Package tracker logs food, activity, sleep, water and steps and keeps
// the daily stats record of each user up to date.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/locale"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
)

// HistoryDays is how many days of stats History returns.
const HistoryDays = 30

var ErrInvalidInput = errors.New("invalid input")

// Store is the persistence the tracker needs.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)

	GetDailyStats(ctx context.Context, userID, date string) (*models.DailyStats, error)
	UpsertDailyStats(ctx context.Context, s *models.DailyStats) error
	ListDailyStats(ctx context.Context, userID string, limit int) ([]*models.DailyStats, error)

	AddFood(ctx context.Context, e *models.FoodEntry) error
	UpdateFood(ctx context.Context, e *models.FoodEntry) error
	DeleteFood(ctx context.Context, userID, id string) error
	ListFood(ctx context.Context, userID string, r database.TimeRange) ([]*models.FoodEntry, error)
	AddActivity(ctx context.Context, e *models.ActivityEntry) error
	ListActivities(ctx context.Context, userID string, r database.TimeRange) ([]*models.ActivityEntry, error)
	AddSleep(ctx context.Context, e *models.SleepEntry) error
	ListSleep(ctx context.Context, userID string, r database.TimeRange) ([]*models.SleepEntry, error)
}

type Tracker struct {
	store   Store
	model   ml.Model
	locales *locale.Store
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	userLocks sync.Map // user id -> *sync.Mutex, serializes stats read-modify-write
}

func New(store Store, model ml.Model, locales *locale.Store, timeout time.Duration, logger *zap.Logger) *Tracker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Tracker{
		store:   store,
		model:   model,
		locales: locales,
		timeout: timeout,
		logger:  logger.Named("tracker"),
		now:     time.Now,
	}
}

func (t *Tracker) lock(userID string) func() {
	mu, _ := t.userLocks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Today returns today's stats, or an empty record when nothing was logged.
func (t *Tracker) Today(ctx context.Context, userID string) (*models.DailyStats, error) {
	return t.statsFor(ctx, userID, models.DateOf(t.now()))
}

func (t *Tracker) statsFor(ctx context.Context, userID, date string) (*models.DailyStats, error) {
	st, err := t.store.GetDailyStats(ctx, userID, date)
	if errors.Is(err, database.ErrNotFound) {
		return &models.DailyStats{UserID: userID, Date: date}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return st, nil
}

// updateToday applies fn to today's record and saves it.
func (t *Tracker) updateToday(ctx context.Context, userID string, fn func(*models.DailyStats)) (*models.DailyStats, error) {
	defer t.lock(userID)()

	st, err := t.Today(ctx, userID)
	if err != nil {
		return nil, err
	}
	fn(st)
	if err := t.store.UpsertDailyStats(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save stats: %w", err)
	}
	return st, nil
}

// StatsUpdate carries the fields of a partial stats write; nil fields are kept.
type StatsUpdate struct {
	Calories   *float64 `json:"calories"`
	Steps      *int     `json:"steps"`
	Water      *int     `json:"water"`
	SleepHours *float64 `json:"sleepHours"`
}

func (u StatsUpdate) validate() error {
	if (u.Calories != nil && *u.Calories < 0) || (u.Steps != nil && *u.Steps < 0) ||
		(u.Water != nil && *u.Water < 0) || (u.SleepHours != nil && *u.SleepHours < 0) {
		return fmt.Errorf("%w: stats values must not be negative", ErrInvalidInput)
	}
	return nil
}

// UpdateToday overwrites the given fields of today's stats.
func (t *Tracker) UpdateToday(ctx context.Context, userID string, u StatsUpdate) (*models.DailyStats, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	return t.updateToday(ctx, userID, func(st *models.DailyStats) {
		if u.Calories != nil {
			st.Calories = *u.Calories
		}
		if u.Steps != nil {
			st.Steps = *u.Steps
		}
		if u.Water != nil {
			st.Water = *u.Water
		}
		if u.SleepHours != nil {
			st.SleepHours = *u.SleepHours
		}
	})
}

func (t *Tracker) SetSteps(ctx context.Context, userID string, steps int) (*models.DailyStats, error) {
	return t.UpdateToday(ctx, userID, StatsUpdate{Steps: &steps})
}

func (t *Tracker) SetWater(ctx context.Context, userID string, water int) (*models.DailyStats, error) {
	return t.UpdateToday(ctx, userID, StatsUpdate{Water: &water})
}

func (t *Tracker) SetSleepHours(ctx context.Context, userID string, hours float64) (*models.DailyStats, error) {
	return t.UpdateToday(ctx, userID, StatsUpdate{SleepHours: &hours})
}

// History returns up to HistoryDays most recent days, oldest first.
func (t *Tracker) History(ctx context.Context, userID string) ([]*models.DailyStats, error) {
	days, err := t.store.ListDailyStats(ctx, userID, HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	slices.Reverse(days)
	return days, nil
}

func (t *Tracker) todayRange() database.TimeRange {
	from, to := models.DayBounds(t.now())
	return database.TimeRange{From: from, To: to}
}
