package domain

import (
	"fmt"
	"math"
)

// The ten bodies reported by the ephemeris, in the order it returns them.
const (
	Sun     = "Sun"
	Moon    = "Moon"
	Mercury = "Mercury"
	Venus   = "Venus"
	Mars    = "Mars"
	Jupiter = "Jupiter"
	Saturn  = "Saturn"
	Uranus  = "Uranus"
	Neptune = "Neptune"
	Pluto   = "Pluto"
)

var bodies = [...]string{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

// Bodies returns the planet names in ephemeris order.
func Bodies() []string {
	out := make([]string, len(bodies))
	copy(out, bodies[:])
	return out
}

var zodiacSigns = [...]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// PlanetPosition is one body of a chart as reported by the ephemeris.
type PlanetPosition struct {
	Name         string  `json:"name"`
	Longitude    float64 `json:"longitude"`
	ZodiacSign   string  `json:"zodiac_sign"`
	ZodiacDegree float64 `json:"zodiac_degree"`
	House        int     `json:"house"`
	Retrograde   bool    `json:"retrograde"`
}

// Validate rejects longitudes the aspect detector cannot reason about.
func (p PlanetPosition) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing planet name", ErrInvalidPlanetPosition)
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) || p.Longitude < 0 || p.Longitude >= 360 {
		return fmt.Errorf("%w: %s longitude %v outside [0, 360)", ErrInvalidPlanetPosition, p.Name, p.Longitude)
	}
	return nil
}

// ValidatePlanets checks every position and returns the first failure.
func ValidatePlanets(planets []PlanetPosition) error {
	for _, p := range planets {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ZodiacPosition splits an ecliptic longitude into its sign and degree within the sign.
func ZodiacPosition(longitude float64) (string, float64) {
	lon := math.Mod(longitude, 360)
	if lon < 0 {
		lon += 360
	}
	idx := int(lon/30) % len(zodiacSigns)
	return zodiacSigns[idx], math.Mod(lon, 30)
}

// NatalChart is the ephemeris response for one moment and place.
type NatalChart struct {
	Planets         []PlanetPosition `json:"planets"`
	CalculationTime string           `json:"calculation_time"`
}
