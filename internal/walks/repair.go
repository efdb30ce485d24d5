package walks

import (
	"fmt"
	"math"

	"github.com/franckalain/wellness/internal/models"
)

const (
	// StrideMeters is the average length of one walking step.
	StrideMeters = 0.7
	// FallbackSteps is used when the daily step goal is already met.
	FallbackSteps = 3000
	// MinutesPerKm is the assumed walking pace.
	MinutesPerKm = 12
	roundTrips   = 3
)

// StepsNeeded is the remaining step deficit for today, never negative.
func StepsNeeded(goal, current int) int {
	return max(0, goal-current)
}

// TargetDistanceKm converts steps to a walking distance of at least 1 km.
func TargetDistanceKm(steps int) float64 {
	return math.Max(1.0, float64(steps)*StrideMeters/1000)
}

// DurationMinutes estimates how long a walk of km takes.
func DurationMinutes(km float64) int {
	return int(math.Round(km * MinutesPerKm))
}

// RepairRoutes enforces the structure each mode promises, whatever the
// model returned. For direct and custom_address the first three routes are
// round trips and the rest one-way; a title that merely repeats the start
// location is replaced with walkTof applied to the end location.
// The input slice is not modified.
func RepairRoutes(mode models.WalkMode, routes []models.WalkingRoute, walkTof string) []models.WalkingRoute {
	out := make([]models.WalkingRoute, len(routes))
	copy(out, routes)
	if mode != models.WalkDirect && mode != models.WalkCustomAddress {
		return out
	}
	for i := range out {
		out[i].IsRoundTrip = i < roundTrips
		if out[i].Title == out[i].StartLocation {
			out[i].Title = fmt.Sprintf(walkTof, out[i].EndLocation)
		}
	}
	return out
}

// fillEstimates sets numbers the model left out from the request itself.
func fillEstimates(routes []models.WalkingRoute, steps int, km float64) {
	for i := range routes {
		r := &routes[i]
		if r.EstimatedSteps <= 0 {
			r.EstimatedSteps = steps
		}
		if r.DistanceKm <= 0 {
			r.DistanceKm = km
		}
		if r.DurationMinutes <= 0 {
			r.DurationMinutes = DurationMinutes(r.DistanceKm)
		}
	}
}
