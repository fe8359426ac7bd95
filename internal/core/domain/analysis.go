package domain

const fallbackInterval = "Perfect Fifth"

// HarmonicAnalysis summarizes the harmonic content of a chart.
type HarmonicAnalysis struct {
	Complexity       float64   `json:"complexity"`
	PrimaryIntervals []string  `json:"primary_intervals"`
	TensionCurve     []float64 `json:"tension_curve"`
	// ObservedTension weights each aspect's rule tension by its strength,
	// strongest first. It always has the same length as TensionCurve.
	ObservedTension []float64 `json:"observed_tension"`
}

// AnalyzeHarmony derives the analysis from aspects already sorted by strength.
func AnalyzeHarmony(aspects []CalculatedAspect) HarmonicAnalysis {
	curve := DefaultTensionCurve()

	intervals := make([]string, 0, MaxStrongAspects)
	seen := make(map[string]bool)
	for _, a := range StrongAspects(aspects) {
		if seen[a.MusicalInterval] {
			continue
		}
		seen[a.MusicalInterval] = true
		intervals = append(intervals, a.MusicalInterval)
	}
	if len(intervals) == 0 {
		intervals = append(intervals, fallbackInterval)
	}

	observed := make([]float64, len(curve))
	for i := 0; i < len(observed) && i < len(aspects); i++ {
		def, ok := LookupAspect(aspects[i].AspectName)
		if !ok {
			continue
		}
		observed[i] = aspects[i].Strength * def.Tension
	}

	return HarmonicAnalysis{
		Complexity:       rhythmicComplexity,
		PrimaryIntervals: intervals,
		TensionCurve:     curve,
		ObservedTension:  observed,
	}
}
