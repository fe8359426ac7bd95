package domain

import (
	"cmp"
	"math"
	"slices"
)

// AspectDefinition is one rule of the ordered aspect list.
type AspectDefinition struct {
	Name            string  `json:"name"`
	Angle           float64 `json:"angle"`
	MaxOrb          float64 `json:"max_orb"`
	MusicalInterval string  `json:"musical_interval"`
	HarmonyType     string  `json:"harmony_type"`
	Tension         float64 `json:"tension"`
}

// Rules are evaluated in this order and the first one within orb wins,
// so a pair never carries more than one aspect.
var aspectDefinitions = [...]AspectDefinition{
	{Name: "Conjunction", Angle: 0, MaxOrb: 8, MusicalInterval: "Unison", HarmonyType: "Fusion", Tension: 0.8},
	{Name: "Sextile", Angle: 60, MaxOrb: 6, MusicalInterval: "Major Third", HarmonyType: "Flow", Tension: 0.2},
	{Name: "Square", Angle: 90, MaxOrb: 8, MusicalInterval: "Tritone", HarmonyType: "Friction", Tension: 0.9},
	{Name: "Trine", Angle: 120, MaxOrb: 8, MusicalInterval: "Perfect Fifth", HarmonyType: "Harmony", Tension: 0.1},
	{Name: "Opposition", Angle: 180, MaxOrb: 8, MusicalInterval: "Octave", HarmonyType: "Polarity", Tension: 0.7},
	{Name: "Quincunx", Angle: 150, MaxOrb: 3, MusicalInterval: "Minor Seventh", HarmonyType: "Adjustment", Tension: 0.6},
}

// AspectDefinitions returns a copy of the rule list in match order.
func AspectDefinitions() []AspectDefinition {
	out := make([]AspectDefinition, len(aspectDefinitions))
	copy(out, aspectDefinitions[:])
	return out
}

// LookupAspect finds a rule by name.
func LookupAspect(name string) (AspectDefinition, bool) {
	for _, def := range aspectDefinitions {
		if def.Name == name {
			return def, true
		}
	}
	return AspectDefinition{}, false
}

// TransitDirection is the static applying/separating label of a transit.
type TransitDirection string

const (
	DirectionApplying   TransitDirection = "applying"
	DirectionSeparating TransitDirection = "separating"
)

// Transits tighter than this are labelled applying. This is a static
// approximation; a real direction needs two ephemeris samples.
const applyingOrb = 1.0

// CalculatedAspect is a natal-to-natal match.
type CalculatedAspect struct {
	Planet1         string  `json:"planet1"`
	Planet2         string  `json:"planet2"`
	AspectName      string  `json:"aspect_name"`
	ExactAngle      float64 `json:"exact_angle"`
	Orb             float64 `json:"orb"`
	MusicalInterval string  `json:"musical_interval"`
	HarmonyType     string  `json:"harmony_type"`
	Strength        float64 `json:"strength"`
}

// CalculatedTransit is a match between a current body and a natal body.
type CalculatedTransit struct {
	TransitingPlanet string           `json:"transiting_planet"`
	NatalPlanet      string           `json:"natal_planet"`
	AspectName       string           `json:"aspect_name"`
	ExactAngle       float64          `json:"exact_angle"`
	Orb              float64          `json:"orb"`
	MusicalInterval  string           `json:"musical_interval"`
	HarmonyType      string           `json:"harmony_type"`
	Intensity        float64          `json:"intensity"`
	Direction        TransitDirection `json:"movement_direction"`
}

// AngularDistance is the shorter arc between two longitudes, in [0, 180]
// for inputs in [0, 360).
func AngularDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// AspectStrength decays linearly from 1 at an exact aspect to 0 at the orb limit.
func AspectStrength(orb, maxOrb float64) float64 {
	return math.Max(0, (maxOrb-orb)/maxOrb)
}

// MatchAspect returns the first rule whose orb window contains separation.
// The bool is false when the separation falls between every window.
func MatchAspect(separation float64) (AspectDefinition, float64, bool) {
	for _, def := range aspectDefinitions {
		orb := math.Abs(separation - def.Angle)
		if orb <= def.MaxOrb {
			return def, orb, true
		}
	}
	return AspectDefinition{}, 0, false
}

// DetectAspects compares every unordered pair of a single chart.
// The result is ordered by strength, strongest first, keeping discovery
// order for ties.
func DetectAspects(planets []PlanetPosition) []CalculatedAspect {
	aspects := make([]CalculatedAspect, 0)
	for i := 0; i < len(planets); i++ {
		for j := i + 1; j < len(planets); j++ {
			p1, p2 := planets[i], planets[j]
			separation := AngularDistance(p1.Longitude, p2.Longitude)
			def, orb, ok := MatchAspect(separation)
			if !ok {
				continue
			}
			aspects = append(aspects, CalculatedAspect{
				Planet1:         p1.Name,
				Planet2:         p2.Name,
				AspectName:      def.Name,
				ExactAngle:      separation,
				Orb:             orb,
				MusicalInterval: def.MusicalInterval,
				HarmonyType:     def.HarmonyType,
				Strength:        AspectStrength(orb, def.MaxOrb),
			})
		}
	}

	slices.SortStableFunc(aspects, func(a, b CalculatedAspect) int {
		return cmp.Compare(b.Strength, a.Strength)
	})
	return aspects
}

// DetectTransits compares every transiting body with every natal body,
// including a body with its own natal position.
func DetectTransits(transiting, natal []PlanetPosition) []CalculatedTransit {
	transits := make([]CalculatedTransit, 0)
	for _, tp := range transiting {
		for _, np := range natal {
			separation := AngularDistance(tp.Longitude, np.Longitude)
			def, orb, ok := MatchAspect(separation)
			if !ok {
				continue
			}
			direction := DirectionSeparating
			if orb < applyingOrb {
				direction = DirectionApplying
			}
			transits = append(transits, CalculatedTransit{
				TransitingPlanet: tp.Name,
				NatalPlanet:      np.Name,
				AspectName:       def.Name,
				ExactAngle:       separation,
				Orb:              orb,
				MusicalInterval:  def.MusicalInterval,
				HarmonyType:      def.HarmonyType,
				Intensity:        AspectStrength(orb, def.MaxOrb),
				Direction:        direction,
			})
		}
	}

	slices.SortStableFunc(transits, func(a, b CalculatedTransit) int {
		return cmp.Compare(b.Intensity, a.Intensity)
	})
	return transits
}
