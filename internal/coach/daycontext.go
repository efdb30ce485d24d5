package coach

import (
	"context"
	"errors"
	"time"

	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/models"
	"golang.org/x/sync/errgroup"
)

// ContextStore is the read side the coach needs to describe a user's day.
type ContextStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetSettings(ctx context.Context, userID string) (*models.Settings, error)
	GetDailyStats(ctx context.Context, userID, date string) (*models.DailyStats, error)
	ListFood(ctx context.Context, userID string, r database.TimeRange) ([]*models.FoodEntry, error)
	ListActivities(ctx context.Context, userID string, r database.TimeRange) ([]*models.ActivityEntry, error)
	ListSleep(ctx context.Context, userID string, r database.TimeRange) ([]*models.SleepEntry, error)
}

// LoadDayContext gathers everything for the context block concurrently.
// Missing records leave the matching field nil.
func LoadDayContext(ctx context.Context, store ContextStore, userID string, now time.Time) (DayContext, error) {
	var dc DayContext
	from, to := models.DayBounds(now)
	today := database.TimeRange{From: from, To: to}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := store.GetProfile(ctx, userID)
		if err != nil {
			return ignoreNotFound(err)
		}
		dc.Profile = p
		return nil
	})

	g.Go(func() error {
		s, err := store.GetSettings(ctx, userID)
		if err != nil {
			return ignoreNotFound(err)
		}
		dc.Sleep = &s.Sleep
		return nil
	})

	g.Go(func() error {
		st, err := store.GetDailyStats(ctx, userID, models.DateOf(now))
		if err != nil {
			return ignoreNotFound(err)
		}
		water := st.Water
		dc.WaterMl = &water
		return nil
	})

	g.Go(func() error {
		food, err := store.ListFood(ctx, userID, today)
		if err != nil {
			return err
		}
		if len(food) > 0 {
			var m models.Macros
			for _, f := range food {
				m.Calories += f.Macros.Calories
				m.Protein += f.Macros.Protein
				m.Fat += f.Macros.Fat
				m.Carbs += f.Macros.Carbs
			}
			dc.Macros = &m
		}
		return nil
	})

	g.Go(func() error {
		recent, err := store.ListFood(ctx, userID, database.TimeRange{Limit: maxRecentMeals})
		if err != nil {
			return err
		}
		dc.RecentMeals = recent
		return nil
	})

	g.Go(func() error {
		acts, err := store.ListActivities(ctx, userID, today)
		if err != nil {
			return err
		}
		if len(acts) > 0 {
			total := 0
			for _, a := range acts {
				total += a.CaloriesBurned
			}
			dc.ActivityCalories = &total
		}
		return nil
	})

	g.Go(func() error {
		sleeps, err := store.ListSleep(ctx, userID, database.TimeRange{Limit: 1})
		if err != nil {
			return err
		}
		if len(sleeps) > 0 {
			dc.LastSleep = sleeps[0]
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return DayContext{}, err
	}
	return dc, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	return err
}
