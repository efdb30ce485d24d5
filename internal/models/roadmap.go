package models

import "time"

type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
)

// Valid reports whether s is a known step status.
func (s StepStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type RoadmapStep struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
}

// RoadmapTargets are the daily numbers a roadmap sets for the user.
type RoadmapTargets struct {
	DailyCalories float64 `json:"dailyCalories"`
	DailyWater    float64 `json:"dailyWater"` // ml
	DailySteps    float64 `json:"dailySteps"`
	SleepHours    float64 `json:"sleepHours"`
}

// Roadmap is an ordered wellness plan plus its targets. It is always
// replaced as a whole.
type Roadmap struct {
	UserID    string         `json:"userId"`
	Steps     []RoadmapStep  `json:"steps"`
	Targets   RoadmapTargets `json:"targets"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
