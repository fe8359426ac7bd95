package domain

// MusicalDNA is the fixed musical character assigned to a planet.
type MusicalDNA struct {
	BaseNote           string  `json:"base_note"`
	InstrumentFamily   string  `json:"instrument_family"`
	TempoModifier      float64 `json:"tempo_modifier"`
	EmotionalCore      string  `json:"emotional_core"`
	RhythmicSignature  string  `json:"rhythmic_signature"`
	HarmonicPreference string  `json:"harmonic_preference"`
}

var planetDNA = map[string]MusicalDNA{
	Sun:     {"C", "brass", 1.0, "confident", "4/4", "major"},
	Moon:    {"A", "strings", 0.7, "intuitive", "3/4", "minor"},
	Mercury: {"E", "woodwinds", 1.4, "quick", "6/8", "diminished"},
	Venus:   {"F", "strings", 0.85, "beautiful", "3/4", "major"},
	Mars:    {"G", "percussion", 1.5, "driving", "4/4", "augmented"},
	Jupiter: {"D", "brass", 0.9, "expansive", "4/4", "major"},
	Saturn:  {"Bb", "organ", 0.6, "structured", "4/4", "minor"},
	Uranus:  {"F#", "electronic", 1.2, "innovative", "7/8", "augmented"},
	Neptune: {"Db", "ambient", 0.5, "ethereal", "5/4", "suspended"},
	Pluto:   {"Ab", "bass", 0.4, "transformative", "4/4", "diminished"},
}

// LookupDNA returns the musical character of a planet by name.
func LookupDNA(planet string) (MusicalDNA, bool) {
	dna, ok := planetDNA[planet]
	return dna, ok
}

// MusicalSignature joins a planet's position with its musical character.
type MusicalSignature struct {
	Planet     string     `json:"planet"`
	ZodiacSign string     `json:"zodiac_sign"`
	House      int        `json:"house"`
	Retrograde bool       `json:"retrograde"`
	DNA        MusicalDNA `json:"dna"`
}

// Signatures builds one signature per known planet, in chart order.
// Bodies without an entry (asteroids, nodes) are skipped.
func Signatures(planets []PlanetPosition) []MusicalSignature {
	out := make([]MusicalSignature, 0, len(planets))
	for _, p := range planets {
		dna, ok := planetDNA[p.Name]
		if !ok {
			continue
		}
		out = append(out, MusicalSignature{
			Planet:     p.Name,
			ZodiacSign: p.ZodiacSign,
			House:      p.House,
			Retrograde: p.Retrograde,
			DNA:        dna,
		})
	}
	return out
}
