package midi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

func TestWriteScore(t *testing.T) {
	aspects := []domain.CalculatedAspect{
		{Planet1: "Sun", Planet2: "Moon", AspectName: "Trine", HarmonyType: "Harmony", Strength: 0.9},
	}
	c := domain.Synthesize(aspects, nil)

	var buf bytes.Buffer
	require.NoError(t, Writer{}.WriteScore(&buf, c))

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 1)
	assert.Equal(t, smf.MetricTicks(TicksPerQuarter), s.TimeFormat)

	var (
		tempos   []float64
		chords   int
		melody   []uint8
		absolute uint32
		firstG   uint32
	)
	for _, ev := range s.Tracks[0] {
		absolute += ev.Delta
		var bpm float64
		if ev.Message.GetMetaTempo(&bpm) {
			tempos = append(tempos, bpm)
			continue
		}
		var ch, key, vel uint8
		if gomidi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
			switch ch {
			case chordChannel:
				chords++
				if key == 67 && firstG == 0 {
					firstG = absolute
				}
			case planetChannel:
				melody = append(melody, key)
			}
		}
	}

	assert.Equal(t, []float64{80, 80, 100, 120, 110, 85, 75}, tempos)
	assert.Equal(t, 7*3, chords, "one triad per key change")
	// Sun (C) and Moon (A) in every aspect-driven movement.
	assert.Equal(t, []uint8{72, 81, 72, 81, 72, 81}, melody)
	// C major's fifth first sounds at the start.
	assert.Zero(t, firstG)
}

func TestSecondsToTicks(t *testing.T) {
	tempos := []tempoPoint{{start: 0, bpm: 60}, {start: 10, bpm: 120}}

	assert.Equal(t, uint32(0), secondsToTicks(tempos, 0))
	assert.Equal(t, uint32(5*TicksPerQuarter), secondsToTicks(tempos, 5))
	assert.Equal(t, uint32(10*TicksPerQuarter), secondsToTicks(tempos, 10))
	assert.Equal(t, uint32(14*TicksPerQuarter), secondsToTicks(tempos, 12))
}

func TestTriad(t *testing.T) {
	got, ok := triad("Am")
	require.True(t, ok)
	assert.Equal(t, []uint8{69, 72, 76}, got)

	got, ok = triad("Bb")
	require.True(t, ok)
	assert.Equal(t, []uint8{70, 74, 77}, got)

	_, ok = triad("H")
	assert.False(t, ok)
}

func TestParseMeter(t *testing.T) {
	n, d := parseMeter("7/8")
	assert.Equal(t, []uint8{7, 8}, []uint8{n, d})

	n, d = parseMeter("complex polyrhythm")
	assert.Equal(t, []uint8{4, 4}, []uint8{n, d})
}

func TestVelocity(t *testing.T) {
	c := domain.CompositionStructure{TotalDuration: 100, HarmonicTensionCurve: []float64{0, 1}}
	assert.Equal(t, uint8(40), velocity(c, 10))
	assert.Equal(t, uint8(120), velocity(c, 99))
	assert.Equal(t, uint8(80), velocity(domain.CompositionStructure{}, 0))
}
