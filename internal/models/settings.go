package models

import (
	"errors"
	"fmt"
	"regexp"
)

const DefaultWaterGoal = 2500 // ml

// ErrInvalidSettings is returned when settings fail validation.
var ErrInvalidSettings = errors.New("invalid settings")

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidClock reports whether s is a 24h "HH:MM" time.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

type ReminderConfig struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time"` // "HH:MM"
}

type MealReminders struct {
	Breakfast ReminderConfig `json:"breakfast"`
	Lunch     ReminderConfig `json:"lunch"`
	Dinner    ReminderConfig `json:"dinner"`
}

type SleepConfig struct {
	TargetHours            float64 `json:"targetHours"`
	BedTime                string  `json:"bedTime"`
	WakeTime               string  `json:"wakeTime"`
	BedTimeReminderEnabled bool    `json:"bedTimeReminderEnabled"`
	WakeAlarmEnabled       bool    `json:"wakeAlarmEnabled"`
}

// Settings holds the water goal, reminders and sleep configuration of a user.
type Settings struct {
	UserID        string        `json:"userId"`
	WaterGoal     int           `json:"waterGoal"`
	MealReminders MealReminders `json:"mealReminders"`
	Sleep         SleepConfig   `json:"sleep"`
}

// DefaultSettings returns the settings a user starts with.
func DefaultSettings(userID string) *Settings {
	return &Settings{
		UserID:    userID,
		WaterGoal: DefaultWaterGoal,
		MealReminders: MealReminders{
			Breakfast: ReminderConfig{Time: "09:00"},
			Lunch:     ReminderConfig{Time: "13:00"},
			Dinner:    ReminderConfig{Time: "19:00"},
		},
		Sleep: SleepConfig{
			TargetHours: 8,
			BedTime:     "23:00",
			WakeTime:    "07:00",
		},
	}
}

func (s *Settings) Validate() error {
	if s.WaterGoal <= 0 {
		return fmt.Errorf("%w: waterGoal must be positive, got %d", ErrInvalidSettings, s.WaterGoal)
	}
	times := map[string]string{
		"breakfast": s.MealReminders.Breakfast.Time,
		"lunch":     s.MealReminders.Lunch.Time,
		"dinner":    s.MealReminders.Dinner.Time,
		"bedTime":   s.Sleep.BedTime,
		"wakeTime":  s.Sleep.WakeTime,
	}
	for field, v := range times {
		if !ValidClock(v) {
			return fmt.Errorf("%w: %s: invalid time %q", ErrInvalidSettings, field, v)
		}
	}
	return nil
}
