package domain

import (
	"fmt"
	"math"
	"time"
)

// HouseSystem selects how the ephemeris divides the chart into houses.
type HouseSystem string

const (
	HousePlacidus  HouseSystem = "Placidus"
	HouseKoch      HouseSystem = "Koch"
	HouseEqual     HouseSystem = "Equal"
	HouseWholeSign HouseSystem = "Whole Sign"
)

// Valid reports whether the ephemeris understands the house system.
// The empty value is accepted and means Placidus.
func (h HouseSystem) Valid() bool {
	switch h {
	case "", HousePlacidus, HouseKoch, HouseEqual, HouseWholeSign:
		return true
	}
	return false
}

const (
	minBirthYear = 1000
	maxBirthYear = 3000
	maxTZOffset  = 14
)

// BirthData is the request record sent to the ephemeris.
// Hour and minute are local wall-clock time at TimezoneOffset hours from UTC.
type BirthData struct {
	Year           int         `json:"year"`
	Month          int         `json:"month"`
	Day            int         `json:"day"`
	Hour           int         `json:"hour"`
	Minute         int         `json:"minute"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	TimezoneOffset float64     `json:"timezone_offset"`
	HouseSystem    HouseSystem `json:"house_system,omitempty"`
}

// Validate checks calendar and coordinate ranges.
func (b BirthData) Validate() error {
	if b.Year < minBirthYear || b.Year > maxBirthYear {
		return fmt.Errorf("%w: year %d outside %d-%d", ErrInvalidBirthData, b.Year, minBirthYear, maxBirthYear)
	}
	if b.Month < 1 || b.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidBirthData, b.Month)
	}
	if b.Day < 1 || time.Date(b.Year, time.Month(b.Month), b.Day, 0, 0, 0, 0, time.UTC).Day() != b.Day {
		return fmt.Errorf("%w: day %d does not exist in %04d-%02d", ErrInvalidBirthData, b.Day, b.Year, b.Month)
	}
	if b.Hour < 0 || b.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidBirthData, b.Hour)
	}
	if b.Minute < 0 || b.Minute > 59 {
		return fmt.Errorf("%w: minute %d", ErrInvalidBirthData, b.Minute)
	}
	if !finite(b.Latitude) || b.Latitude < -90 || b.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidBirthData, b.Latitude)
	}
	if !finite(b.Longitude) || b.Longitude < -180 || b.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidBirthData, b.Longitude)
	}
	if !finite(b.TimezoneOffset) || math.Abs(b.TimezoneOffset) > maxTZOffset {
		return fmt.Errorf("%w: timezone offset %v", ErrInvalidBirthData, b.TimezoneOffset)
	}
	if !b.HouseSystem.Valid() {
		return fmt.Errorf("%w: house system %q", ErrInvalidBirthData, b.HouseSystem)
	}
	return nil
}

// LocalTime returns the birth moment in a fixed zone at TimezoneOffset.
func (b BirthData) LocalTime() time.Time {
	offset := int(math.Round(b.TimezoneOffset * 3600))
	zone := time.FixedZone("", offset)
	return time.Date(b.Year, time.Month(b.Month), b.Day, b.Hour, b.Minute, 0, 0, zone)
}

// SkyAt builds the record for the sky at t, observed from the given place.
// The moment is expressed in UTC so the offset is always zero.
func SkyAt(t time.Time, latitude, longitude float64, hs HouseSystem) BirthData {
	u := t.UTC()
	return BirthData{
		Year:        u.Year(),
		Month:       int(u.Month()),
		Day:         u.Day(),
		Hour:        u.Hour(),
		Minute:      u.Minute(),
		Latitude:    latitude,
		Longitude:   longitude,
		HouseSystem: hs,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
