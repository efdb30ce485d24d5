package models

import "time"

const DateLayout = "2006-01-02"

// DailyStats is the per-day summary; one record per user per date.
type DailyStats struct {
	UserID     string  `json:"userId"`
	Date       string  `json:"date"` // YYYY-MM-DD
	Calories   float64 `json:"calories"`
	Steps      int     `json:"steps"`
	Water      int     `json:"water"` // ml
	SleepHours float64 `json:"sleepHours"`
}

// DateOf formats t as a stats date.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// DayBounds returns the [start, end) millisecond range of the day containing t.
func DayBounds(t time.Time) (int64, int64) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 1)
	return start.UnixMilli(), end.UnixMilli()
}
