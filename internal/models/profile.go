package models

import (
	"errors"
	"fmt"
)

// ErrInvalidProfile is returned when a profile fails validation.
var ErrInvalidProfile = errors.New("invalid profile")

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Goal string

const (
	GoalLoseWeight Goal = "lose_weight"
	GoalGainMuscle Goal = "gain_muscle"
	GoalMaintain   Goal = "maintain"
)

type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityActive    ActivityLevel = "active"
	ActivityAthletic  ActivityLevel = "athletic"
)

const (
	DefaultCalorieGoal = 2000
	DefaultStepGoal    = 10000
)

// UserProfile holds the body metrics and daily goals of a user.
type UserProfile struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`

	Height float64 `json:"height"` // cm
	Weight float64 `json:"weight"` // kg
	Age    int     `json:"age"`

	Gender        Gender        `json:"gender"`
	Goal          Goal          `json:"goal"`
	ActivityLevel ActivityLevel `json:"activityLevel"`

	DailyCalorieGoal int `json:"dailyCalorieGoal"`
	DailyStepGoal    int `json:"dailyStepGoal"`

	Allergies        string `json:"allergies,omitempty"`
	Preferences      string `json:"preferences,omitempty"`
	HealthConditions string `json:"healthConditions,omitempty"`
}

// NewProfile returns a profile with default goals.
func NewProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:           userID,
		Gender:           GenderOther,
		Goal:             GoalMaintain,
		ActivityLevel:    ActivitySedentary,
		DailyCalorieGoal: DefaultCalorieGoal,
		DailyStepGoal:    DefaultStepGoal,
	}
}

// Validate checks enum values and that both daily goals are positive.
func (p *UserProfile) Validate() error {
	if p.DailyCalorieGoal <= 0 {
		return fmt.Errorf("%w: dailyCalorieGoal must be positive, got %d", ErrInvalidProfile, p.DailyCalorieGoal)
	}
	if p.DailyStepGoal <= 0 {
		return fmt.Errorf("%w: dailyStepGoal must be positive, got %d", ErrInvalidProfile, p.DailyStepGoal)
	}
	switch p.Gender {
	case GenderMale, GenderFemale, GenderOther:
	default:
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidProfile, p.Gender)
	}
	switch p.Goal {
	case GoalLoseWeight, GoalGainMuscle, GoalMaintain:
	default:
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidProfile, p.Goal)
	}
	switch p.ActivityLevel {
	case ActivitySedentary, ActivityActive, ActivityAthletic:
	default:
		return fmt.Errorf("%w: unknown activity level %q", ErrInvalidProfile, p.ActivityLevel)
	}
	return nil
}
