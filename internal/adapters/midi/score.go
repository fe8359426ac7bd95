// Package midi renders a composition schedule as a Standard MIDI File so the
// structure can be auditioned in any DAW before audio generation.
package midi

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

// TicksPerQuarter is the file resolution.
const TicksPerQuarter = 480

const (
	chordChannel  = 0
	planetChannel = 1
	chordOctave   = 4
	planetOctave  = 5
)

var pitchClasses = map[string]uint8{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4, "F": 5,
	"F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8, "A": 9, "A#": 10, "Bb": 10, "B": 11,
}

// Writer renders the schedule: one tempo/marker map, a sustained triad per
// key change, and each movement's planets as their base notes.
type Writer struct{}

// compile-time interface assertion
var _ ports.ScoreWriter = Writer{}

type event struct {
	tick  uint32
	order int
	msg   []byte
}

type tempoPoint struct {
	start float64 // seconds
	bpm   float64
}

// WriteScore writes a single-track SMF for c to w.
func (Writer) WriteScore(w io.Writer, c domain.CompositionStructure) error {
	tempos := tempoMap(c)
	ticks := func(sec float64) uint32 { return secondsToTicks(tempos, sec) }

	var events []event
	add := func(sec float64, order int, msg []byte) {
		events = append(events, event{tick: ticks(sec), order: order, msg: msg})
	}

	theme := c.PrimaryTheme()
	num, denom := parseMeter(theme.RhythmicPattern)
	add(0, 0, smf.MetaTrackSequenceName("Natal Symphony"))
	add(0, 0, smf.MetaMeter(num, denom))
	for _, tp := range tempos {
		add(tp.start, 1, smf.MetaTempo(tp.bpm))
	}

	start := 0.0
	for _, m := range c.Movements {
		dur := float64(m.Duration)
		add(start, 2, smf.MetaMarker(m.Name))

		if n := len(m.KeyChanges); n > 0 {
			seg := dur / float64(n)
			for i, key := range m.KeyChanges {
				chord, ok := triad(key)
				if !ok {
					continue
				}
				on, off := start+float64(i)*seg, start+float64(i+1)*seg
				vel := velocity(c, on)
				for _, note := range chord {
					add(on, 4, gomidi.NoteOn(chordChannel, note, vel))
					add(off, 3, gomidi.NoteOff(chordChannel, note))
				}
			}
		}

		if n := len(m.PrimaryPlanets); n > 0 {
			seg := dur / float64(n)
			for i, planet := range m.PrimaryPlanets {
				dna, ok := domain.LookupDNA(planet)
				if !ok {
					continue
				}
				pc, ok := pitchClasses[dna.BaseNote]
				if !ok {
					continue
				}
				note := 12*(planetOctave+1) + pc
				on, off := start+float64(i)*seg, start+float64(i+1)*seg
				add(on, 4, gomidi.NoteOn(planetChannel, note, velocity(c, on)))
				add(off, 3, gomidi.NoteOff(planetChannel, note))
			}
		}
		start += dur
	}

	// Note-offs sort before note-ons on the same tick so repeated pitches retrigger.
	slices.SortStableFunc(events, func(a, b event) int {
		if c := cmp.Compare(a.tick, b.tick); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})

	var tr smf.Track
	var last uint32
	for _, ev := range events {
		tr.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("midi: add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("midi: write: %w", err)
	}
	return nil
}

// tempoMap spreads each movement's tempo shifts evenly over its duration.
// A composition without tempos plays at the theme tempo.
func tempoMap(c domain.CompositionStructure) []tempoPoint {
	points := []tempoPoint{}
	start := 0.0
	for _, m := range c.Movements {
		if n := len(m.TempoShifts); n > 0 {
			seg := float64(m.Duration) / float64(n)
			for i, bpm := range m.TempoShifts {
				if bpm <= 0 {
					continue
				}
				points = append(points, tempoPoint{start: start + float64(i)*seg, bpm: float64(bpm)})
			}
		}
		start += float64(m.Duration)
	}
	if len(points) == 0 || points[0].start > 0 {
		bpm := float64(c.PrimaryTheme().TempoBase)
		if bpm <= 0 {
			bpm = 120
		}
		points = append([]tempoPoint{{start: 0, bpm: bpm}}, points...)
	}
	return points
}

func secondsToTicks(tempos []tempoPoint, sec float64) uint32 {
	var beats float64
	for i, tp := range tempos {
		if sec <= tp.start {
			break
		}
		end := sec
		if i+1 < len(tempos) && tempos[i+1].start < sec {
			end = tempos[i+1].start
		}
		beats += (end - tp.start) * tp.bpm / 60
	}
	return uint32(math.Round(beats * TicksPerQuarter))
}

// triad returns the root-position chord for a key such as "C" or "Am".
func triad(key string) ([]uint8, bool) {
	minor := strings.HasSuffix(key, "m")
	pc, ok := pitchClasses[strings.TrimSuffix(key, "m")]
	if !ok {
		return nil, false
	}
	root := 12*(chordOctave+1) + pc
	third := uint8(4)
	if minor {
		third = 3
	}
	return []uint8{root, root + third, root + 7}, true
}

// velocity follows the tension curve across the whole piece.
func velocity(c domain.CompositionStructure, sec float64) uint8 {
	curve := c.HarmonicTensionCurve
	if len(curve) == 0 || c.TotalDuration <= 0 {
		return 80
	}
	idx := int(sec / float64(c.TotalDuration) * float64(len(curve)))
	idx = max(0, min(idx, len(curve)-1))
	t := max(0, min(curve[idx], 1))
	return uint8(40 + math.Round(t*80))
}

func parseMeter(pattern string) (uint8, uint8) {
	var num, denom uint8
	if _, err := fmt.Sscanf(pattern, "%d/%d", &num, &denom); err != nil || num == 0 || denom == 0 {
		return 4, 4
	}
	return num, denom
}
