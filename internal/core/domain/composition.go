package domain

import "fmt"

// Selection thresholds for the thematic material of a composition.
const (
	StrongAspectThreshold  = 0.7
	MaxStrongAspects       = 5
	ActiveTransitThreshold = 0.6
	MaxActiveTransits      = 3
)

// Emotional arc labels, one per movement.
const (
	ArcEstablishing = "establishing"
	ArcDeveloping   = "developing"
	ArcClimax       = "climax"
	ArcResolving    = "resolving"
)

// MusicalTheme describes a recurring theme of the piece.
type MusicalTheme struct {
	Name            string   `json:"name"`
	Key             string   `json:"key"`
	Mode            string   `json:"mode"`
	TempoBase       int      `json:"tempo_base"`
	EmotionalTone   string   `json:"emotional_tone"`
	Instruments     []string `json:"instruments"`
	RhythmicPattern string   `json:"rhythmic_pattern"`
}

// MovementSection is one named section of the composition. Duration is in seconds.
type MovementSection struct {
	Name           string   `json:"name"`
	Duration       int      `json:"duration"`
	PrimaryPlanets []string `json:"primary_planets"`
	KeyChanges     []string `json:"key_changes"`
	TempoShifts    []int    `json:"tempo_shifts"`
	EmotionalArc   string   `json:"emotional_arc"`
	MusicalMotifs  []string `json:"musical_motifs"`
}

// CompositionStructure is the full description handed to the prompt formatter.
type CompositionStructure struct {
	TotalDuration        int               `json:"total_duration"`
	Movements            []MovementSection `json:"movements"`
	DominantThemes       []MusicalTheme    `json:"dominant_themes"`
	HarmonicTensionCurve []float64         `json:"harmonic_tension_curve"`
	RhythmicComplexity   float64           `json:"rhythmic_complexity"`
}

// PrimaryTheme returns the first dominant theme, or the default theme when
// the structure carries none.
func (c CompositionStructure) PrimaryTheme() MusicalTheme {
	if len(c.DominantThemes) == 0 {
		return primaryTheme()
	}
	return c.DominantThemes[0]
}

// The musical shape is fixed; only planet names and motif text vary per chart.
// TODO: derive the curve from aspect strengths once the generation provider
// accepts per-section dynamics (see HarmonicAnalysis.ObservedTension).
var tensionCurve = [...]float64{0.3, 0.4, 0.6, 0.8, 1.0, 0.9, 0.7, 0.5, 0.3, 0.2}

const rhythmicComplexity = 0.7

// DefaultTensionCurve returns a copy of the fixed ten-point tension curve.
func DefaultTensionCurve() []float64 {
	out := make([]float64, len(tensionCurve))
	copy(out, tensionCurve[:])
	return out
}

func primaryTheme() MusicalTheme {
	return MusicalTheme{
		Name:            "Primary Theme",
		Key:             "C",
		Mode:            "Ionian",
		TempoBase:       85,
		EmotionalTone:   "contemplative",
		Instruments:     []string{"piano", "strings"},
		RhythmicPattern: "4/4",
	}
}

// StrongAspects keeps aspects above StrongAspectThreshold, at most MaxStrongAspects,
// in input order.
func StrongAspects(aspects []CalculatedAspect) []CalculatedAspect {
	out := make([]CalculatedAspect, 0, MaxStrongAspects)
	for _, a := range aspects {
		if len(out) == MaxStrongAspects {
			break
		}
		if a.Strength > StrongAspectThreshold {
			out = append(out, a)
		}
	}
	return out
}

// ActiveTransits keeps transits above ActiveTransitThreshold, at most MaxActiveTransits,
// in input order.
func ActiveTransits(transits []CalculatedTransit) []CalculatedTransit {
	out := make([]CalculatedTransit, 0, MaxActiveTransits)
	for _, t := range transits {
		if len(out) == MaxActiveTransits {
			break
		}
		if t.Intensity > ActiveTransitThreshold {
			out = append(out, t)
		}
	}
	return out
}

// Synthesize builds the four-movement structure from the strongest aspects
// and the most active transits. It never fails; empty inputs produce empty
// planet lists inside an otherwise identical structure.
// Resolution features the strongest aspect's pair instead of a fixed Sun, so
// that it too is empty when no aspect is strong.
func Synthesize(aspects []CalculatedAspect, transits []CalculatedTransit) CompositionStructure {
	strong := StrongAspects(aspects)
	active := ActiveTransits(transits)

	interplayMotifs := make([]string, 0, len(strong))
	for _, a := range strong {
		interplayMotifs = append(interplayMotifs, fmt.Sprintf("%s-%s %s", a.Planet1, a.Planet2, a.HarmonyType))
	}

	movements := []MovementSection{
		{
			Name:           "Natal Foundation",
			Duration:       45,
			PrimaryPlanets: aspectPlanets(strong, 2),
			KeyChanges:     []string{"C"},
			TempoShifts:    []int{80},
			EmotionalArc:   ArcEstablishing,
			MusicalMotifs:  []string{"foundation theme", "planetary signatures"},
		},
		{
			Name:           "Cosmic Interplay",
			Duration:       75,
			PrimaryPlanets: aspectPlanets(strong, 3),
			KeyChanges:     []string{"C", "G", "F"},
			TempoShifts:    []int{80, 100, 120},
			EmotionalArc:   ArcDeveloping,
			MusicalMotifs:  interplayMotifs,
		},
		{
			Name:           "Transit Integration",
			Duration:       60,
			PrimaryPlanets: transitingPlanets(active, 2),
			KeyChanges:     []string{"Am", "C"},
			TempoShifts:    []int{110, 85},
			EmotionalArc:   ArcClimax,
			MusicalMotifs:  []string{"current tensions", "dynamic shifts"},
		},
		{
			Name:           "Resolution",
			Duration:       45,
			PrimaryPlanets: aspectPlanets(strong, 1),
			KeyChanges:     []string{"C"},
			TempoShifts:    []int{75},
			EmotionalArc:   ArcResolving,
			MusicalMotifs:  []string{"synthesis", "return home"},
		},
	}

	total := 0
	for _, m := range movements {
		total += m.Duration
	}

	return CompositionStructure{
		TotalDuration:        total,
		Movements:            movements,
		DominantThemes:       []MusicalTheme{primaryTheme()},
		HarmonicTensionCurve: DefaultTensionCurve(),
		RhythmicComplexity:   rhythmicComplexity,
	}
}

// aspectPlanets flattens the participants of the first n aspects. Duplicates stay.
func aspectPlanets(aspects []CalculatedAspect, n int) []string {
	n = min(n, len(aspects))
	out := make([]string, 0, 2*n)
	for _, a := range aspects[:n] {
		out = append(out, a.Planet1, a.Planet2)
	}
	return out
}

func transitingPlanets(transits []CalculatedTransit, n int) []string {
	n = min(n, len(transits))
	out := make([]string, 0, n)
	for _, t := range transits[:n] {
		out = append(out, t.TransitingPlanet)
	}
	return out
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
