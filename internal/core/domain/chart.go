package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SavedChart is a persisted birth record owned by one user.
// BirthDatetime holds the local wall-clock time written with a UTC zone;
// the real offset lives in TimezoneOffset, in minutes.
type SavedChart struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	ChartName         string      `json:"chart_name"`
	BirthDatetime     time.Time   `json:"birth_datetime"`
	BirthLatitude     float64     `json:"birth_latitude"`
	BirthLongitude    float64     `json:"birth_longitude"`
	BirthLocationName string      `json:"birth_location_name,omitempty"`
	TimezoneOffset    int         `json:"timezone_offset"`
	HouseSystem       HouseSystem `json:"house_system"`
	CreatedAt         time.Time   `json:"created_at"`
}

// NewSavedChart validates the birth record and converts it to its stored form.
// ID and CreatedAt are assigned by the repository.
func NewSavedChart(userID, name, location string, b BirthData) (SavedChart, error) {
	if strings.TrimSpace(userID) == "" {
		return SavedChart{}, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(name) == "" {
		return SavedChart{}, fmt.Errorf("%w: chart name is required", ErrInvalidArgument)
	}
	if err := b.Validate(); err != nil {
		return SavedChart{}, err
	}
	hs := b.HouseSystem
	if hs == "" {
		hs = HousePlacidus
	}
	return SavedChart{
		UserID:            userID,
		ChartName:         strings.TrimSpace(name),
		BirthDatetime:     time.Date(b.Year, time.Month(b.Month), b.Day, b.Hour, b.Minute, 0, 0, time.UTC),
		BirthLatitude:     b.Latitude,
		BirthLongitude:    b.Longitude,
		BirthLocationName: location,
		TimezoneOffset:    int(math.Round(b.TimezoneOffset * 60)),
		HouseSystem:       hs,
	}, nil
}

// BirthData converts the stored form back into an ephemeris request.
func (c SavedChart) BirthData() BirthData {
	t := c.BirthDatetime.UTC()
	return BirthData{
		Year:           t.Year(),
		Month:          int(t.Month()),
		Day:            t.Day(),
		Hour:           t.Hour(),
		Minute:         t.Minute(),
		Latitude:       c.BirthLatitude,
		Longitude:      c.BirthLongitude,
		TimezoneOffset: float64(c.TimezoneOffset) / 60,
		HouseSystem:    c.HouseSystem,
	}
}
