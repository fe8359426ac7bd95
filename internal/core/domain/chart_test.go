package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSavedChart_RoundTrip(t *testing.T) {
	b := validBirth()
	b.TimezoneOffset = 5.5

	c, err := NewSavedChart("user-1", "  Me  ", "Mumbai, India", b)
	require.NoError(t, err)

	assert.Equal(t, "Me", c.ChartName)
	assert.Equal(t, 330, c.TimezoneOffset, "offset is stored in minutes")
	assert.Equal(t, HousePlacidus, c.HouseSystem)
	assert.Equal(t, time.Date(1990, 6, 15, 14, 30, 0, 0, time.UTC), c.BirthDatetime)

	back := c.BirthData()
	b.HouseSystem = HousePlacidus
	assert.Equal(t, b, back)
}

func TestNewSavedChart_Rejects(t *testing.T) {
	_, err := NewSavedChart("", "name", "", validBirth())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewSavedChart("u", " ", "", validBirth())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	bad := validBirth()
	bad.Month = 0
	_, err = NewSavedChart("u", "name", "", bad)
	assert.ErrorIs(t, err, ErrInvalidBirthData)
}

func TestEstimateTimezoneOffset(t *testing.T) {
	tests := []struct {
		lon  float64
		want float64
	}{
		{-74.006, -5},
		{2.35, 0},
		{139.69, 9},
		{-112.5, -7},
		{7.5, 1},
		{0, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, EstimateTimezoneOffset(tc.lon), "lon %v", tc.lon)
	}
}
