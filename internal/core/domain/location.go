package domain

import "math"

// MinLocationQuery is the shortest query forwarded to the geocoder.
const MinLocationQuery = 3

// Location is one geocoder suggestion.
type Location struct {
	DisplayName    string  `json:"display_name"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	PlaceID        int64   `json:"place_id"`
	TimezoneOffset float64 `json:"timezone_offset"`
}

// EstimateTimezoneOffset approximates the UTC offset in whole hours from the
// longitude alone. Halves round up, so -7.5 becomes -7.
func EstimateTimezoneOffset(longitude float64) float64 {
	return math.Floor(longitude/15 + 0.5)
}
