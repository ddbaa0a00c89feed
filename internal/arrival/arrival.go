// Package arrival defines the canonical arrival record that every agency
// adapter normalizes into, plus the shared time-bucket classifier.
package arrival

// Arrival is the canonical shape for one predicted vehicle arrival,
// regardless of which agency produced it.
type Arrival struct {
	Line             string `json:"line"`
	Station          string `json:"station,omitempty"`
	Destination      string `json:"destination"`
	Direction        string `json:"direction,omitempty"`
	ArrivalTime      string `json:"arrivalTime"`
	MinutesToArrival *int   `json:"minutesToArrival,omitempty"`
	Delay            string `json:"delay,omitempty"`
	VehicleID        string `json:"vehicleId,omitempty"`
	Status           string `json:"status,omitempty"`
	Platform         string `json:"platform,omitempty"`
	Headsign         string `json:"headsign,omitempty"`
}

// MaxPerResponse bounds how many arrivals a normalizer may return,
// protecting the UI from unbounded lists.
const MaxPerResponse = 10

// OrUnknown substitutes "Unknown" for missing upstream values so that
// Line and Destination are always populated.
func OrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// Truncate caps a normalized result at MaxPerResponse records,
// preserving the agency's own ordering.
func Truncate(arrivals []Arrival) []Arrival {
	if len(arrivals) > MaxPerResponse {
		return arrivals[:MaxPerResponse]
	}
	return arrivals
}
