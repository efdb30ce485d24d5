// Package achievements evaluates the fixed achievement catalog against a
// snapshot of a user's day. Nothing is stored; results are recomputed on
// every request.
package achievements

import (
	"math"

	"github.com/franckalain/wellness/internal/models"
)

const (
	WaterGoal        = "water_goal"
	StepsGoal        = "steps_goal"
	CaloriesOnTarget = "calories_on_target"
	RoadmapReady     = "roadmap_ready"
	EarlyRiser       = "early_riser"
	Marathoner       = "marathoner"
	SleepGoal        = "sleep_goal"
	WeekStreak       = "week_streak"
	HydrationHero    = "hydration_hero"
)

const (
	calorieTolerance = 0.15
	earlyWake        = "08:00"
	marathonSteps    = 15000
	streakDays       = 7
	hydrationMl      = 2000
	hydrationDays    = 3
)

// Achievement is one catalog entry. Current never exceeds Max.
type Achievement struct {
	ID       string  `json:"id"`
	Unlocked bool    `json:"unlocked"`
	Current  float64 `json:"current"`
	Max      float64 `json:"max"`
}

// State is everything the catalog looks at.
type State struct {
	Today       models.DailyStats
	CalorieGoal int
	StepGoal    int
	WaterGoal   int
	HasRoadmap  bool
	Sleep       models.SleepConfig
	History     []models.DailyStats
}

type rule struct {
	id   string
	eval func(State) (current, max float64, unlocked bool)
}

var catalog = []rule{
	{WaterGoal, func(s State) (float64, float64, bool) {
		return goalProgress(float64(s.Today.Water), float64(s.WaterGoal))
	}},
	{StepsGoal, func(s State) (float64, float64, bool) {
		return goalProgress(float64(s.Today.Steps), float64(s.StepGoal))
	}},
	{CaloriesOnTarget, func(s State) (float64, float64, bool) {
		goal := float64(s.CalorieGoal)
		if goal <= 0 {
			return 0, 0, false
		}
		ok := math.Abs(s.Today.Calories-goal) <= calorieTolerance*goal
		return math.Min(s.Today.Calories, goal), goal, ok
	}},
	{RoadmapReady, func(s State) (float64, float64, bool) {
		return flag(s.HasRoadmap)
	}},
	{EarlyRiser, func(s State) (float64, float64, bool) {
		return flag(s.Sleep.WakeAlarmEnabled && models.ValidClock(s.Sleep.WakeTime) && s.Sleep.WakeTime < earlyWake)
	}},
	{Marathoner, func(s State) (float64, float64, bool) {
		return goalProgress(float64(s.Today.Steps), marathonSteps)
	}},
	{SleepGoal, func(s State) (float64, float64, bool) {
		return goalProgress(s.Today.SleepHours, s.Sleep.TargetHours)
	}},
	{WeekStreak, func(s State) (float64, float64, bool) {
		return goalProgress(float64(len(s.History)), streakDays)
	}},
	{HydrationHero, func(s State) (float64, float64, bool) {
		days := 0
		for _, d := range s.History {
			if d.Water >= hydrationMl {
				days++
			}
		}
		return goalProgress(float64(days), hydrationDays)
	}},
}

// Evaluate returns the catalog in a fixed order.
func Evaluate(s State) []Achievement {
	out := make([]Achievement, 0, len(catalog))
	for _, r := range catalog {
		cur, limit, ok := r.eval(s)
		out = append(out, Achievement{ID: r.id, Unlocked: ok, Current: cur, Max: limit})
	}
	return out
}

// goalProgress unlocks when value reaches goal; a non-positive goal never unlocks.
func goalProgress(value, goal float64) (float64, float64, bool) {
	if goal <= 0 {
		return 0, 0, false
	}
	return math.Min(math.Max(value, 0), goal), goal, value >= goal
}

func flag(ok bool) (float64, float64, bool) {
	if ok {
		return 1, 1, true
	}
	return 0, 1, false
}
