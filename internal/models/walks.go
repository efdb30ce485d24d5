package models

type WalkMode string

const (
	WalkNearby        WalkMode = "nearby"
	WalkDirect        WalkMode = "direct"
	WalkCustomAddress WalkMode = "custom_address"
)

func (m WalkMode) Valid() bool {
	switch m {
	case WalkNearby, WalkDirect, WalkCustomAddress:
		return true
	}
	return false
}

type MapLinks struct {
	Yandex string `json:"yandex"`
	Google string `json:"google"`
}

// WalkingRoute is a suggested walk. Routes are not persisted.
type WalkingRoute struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	EstimatedSteps  int      `json:"estimatedSteps"`
	DurationMinutes int      `json:"durationMinutes"`
	DistanceKm      float64  `json:"distanceKm"`
	StartLocation   string   `json:"startLocation"`
	EndLocation     string   `json:"endLocation"`
	IsRoundTrip     bool     `json:"isRoundTrip"`
	Links           MapLinks `json:"links"`
}
