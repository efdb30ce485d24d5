package models

type Macros struct {
	Calories float64 `json:"calories"` // kcal
	Protein  float64 `json:"protein"`  // grams
	Fat      float64 `json:"fat"`      // grams
	Carbs    float64 `json:"carbs"`    // grams
}

// FoodEntry is a logged meal.
type FoodEntry struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	ImageURI       string `json:"imageUri,omitempty"`
	Macros         Macros `json:"macros"`
	Rating         int    `json:"rating"` // 1-10
	Recommendation string `json:"recommendation"`
	Timestamp      int64  `json:"timestamp"` // ms since epoch
}

// FoodAnalysis is the AI estimate for a food photo.
type FoodAnalysis struct {
	Name              string `json:"name"`
	Macros            Macros `json:"macros"`
	Rating            int    `json:"rating"`
	RatingDescription string `json:"ratingDescription"`
	Recommendation    string `json:"recommendation"`
}

// ActivityEntry is a logged workout.
type ActivityEntry struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	Type            string `json:"type"`
	DurationMinutes int    `json:"durationMinutes"`
	CaloriesBurned  int    `json:"caloriesBurned"`
	Timestamp       int64  `json:"timestamp"`
}

// SleepEntry is a logged night of sleep.
type SleepEntry struct {
	ID            string  `json:"id"`
	UserID        string  `json:"userId"`
	DurationHours float64 `json:"durationHours"`
	Quality       int     `json:"quality"` // 1-10
	Timestamp     int64   `json:"timestamp"`
}

// ClampRating bounds a 1-10 score.
func ClampRating(v int) int {
	switch {
	case v < 1:
		return 1
	case v > 10:
		return 10
	}
	return v
}
