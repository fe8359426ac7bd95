// Package prompt renders a composition as the free-text brief sent to the
// audio generation provider.
package prompt

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

const unknownLocation = "Unknown location"

// Input is everything the brief is built from. Aspects and transits are the
// full detector output; Format applies the strong/active selection itself.
type Input struct {
	Composition  domain.CompositionStructure
	Aspects      []domain.CalculatedAspect
	Transits     []domain.CalculatedTransit
	Birth        domain.BirthData
	LocationName string
}

type view struct {
	Date        string
	Time        string
	Location    string
	Composition domain.CompositionStructure
	Theme       domain.MusicalTheme
	Aspects     []domain.CalculatedAspect
	Transits    []domain.CalculatedTransit
	Opening     int
	Peak        int
	Arc         string
}

var funcs = template.FuncMap{
	"duration": domain.FormatDuration,
	"pct":      percent,
	"inc":      func(i int) int { return i + 1 },
	"join":     strings.Join,
	"joinInts": joinInts,
}

var brief = template.Must(template.New("brief").Funcs(funcs).Parse(briefTemplate))

const briefTemplate = `Create a cosmic ambient symphony titled "Natal Symphony - {{.Date}}" with these precise specifications:

🎵 **MUSICAL STRUCTURE:**
• Duration: {{duration .Composition.TotalDuration}}
• Primary Key: {{.Theme.Key}} {{.Theme.Mode}}
• Base Tempo: {{.Theme.TempoBase}} BPM
• Movements: {{len .Composition.Movements}} distinct sections

🌌 **MOVEMENT BREAKDOWN:**
{{range $i, $m := .Composition.Movements}}
{{inc $i}}. "{{$m.Name}}" ({{duration $m.Duration}})
   → Emotional Journey: {{$m.EmotionalArc}}
   → Planetary Influences: {{join $m.PrimaryPlanets ", "}}
   → Key Progression: {{join $m.KeyChanges " → "}}
   → Tempo Evolution: {{joinInts $m.TempoShifts " → "}} BPM
   → Musical Motifs: {{join $m.MusicalMotifs ", "}}
{{- end}}

⚡ **HARMONIC FOUNDATION:**
{{range $i, $a := .Aspects}}{{if $i}}
{{end}}• {{$a.Planet1}}-{{$a.Planet2}} {{$a.AspectName}}: {{$a.MusicalInterval}} ({{$a.HarmonyType}}) - {{pct $a.Strength}}% strength{{end}}

🌟 **CURRENT COSMIC WEATHER:**
{{range $i, $t := .Transits}}{{if $i}}
{{end}}• {{$t.TransitingPlanet}} {{$t.AspectName}} {{$t.NatalPlanet}}: {{$t.MusicalInterval}} tension ({{pct $t.Intensity}}% intensity, {{$t.Direction}}){{end}}

🎼 **STYLE & ATMOSPHERE:**
• Genre: Cosmic ambient with celestial orchestration
• Primary Instruments: Synthesizer pads, cosmic bells, space drones, celestial strings
• Secondary Textures: Harmonic resonators, stellar winds, planetary tones
• Audio Effects: Deep space reverb, cosmic delay, harmonic crystallization
• Emotional Palette: {{.Theme.EmotionalTone}}, meditative yet dynamic
• Rhythmic Complexity: {{pct .Composition.RhythmicComplexity}}% intricate polyrhythms

🎯 **TENSION & DYNAMICS:**
• Opening: Gentle emergence ({{.Opening}}% intensity)
• Development: Building cosmic tension (peak at {{.Peak}}%)
• Resolution: Harmonic integration and peaceful conclusion
• Overall Arc: {{.Arc}}

🌠 **BIRTH CHART CONTEXT:**
Born {{.Date}} at {{.Time}} in {{.Location}}
This composition translates the unique astrological blueprint into an immersive sonic journey, where each planetary position, aspect, and current transit influences the musical narrative. Create a transcendent listening experience that captures the cosmic essence of this natal chart.`

// Format renders the brief.
func Format(in Input) (string, error) {
	v := view{
		Date:        fmt.Sprintf("%d/%d/%d", in.Birth.Month, in.Birth.Day, in.Birth.Year),
		Time:        fmt.Sprintf("%02d:%02d", in.Birth.Hour, in.Birth.Minute),
		Location:    strings.TrimSpace(in.LocationName),
		Composition: in.Composition,
		Theme:       in.Composition.PrimaryTheme(),
		Aspects:     domain.StrongAspects(in.Aspects),
		Transits:    domain.ActiveTransits(in.Transits),
	}
	if v.Location == "" {
		v.Location = unknownLocation
	}

	curve := in.Composition.HarmonicTensionCurve
	if len(curve) > 0 {
		v.Opening = percent(curve[0])
		v.Peak = percent(slices.Max(curve))
	}
	arc := make([]string, 0, len(curve))
	for i, t := range curve {
		arc = append(arc, fmt.Sprintf("%d%%→%d%%", percent(float64(i)/float64(len(curve))), percent(t)))
	}
	v.Arc = strings.Join(arc, ", ")

	var sb strings.Builder
	if err := brief.Execute(&sb, v); err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	return sb.String(), nil
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
