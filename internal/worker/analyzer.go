package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const bytesPerFrame = 4

// AudioAnalysis is what the worker measures from finished audio.
type AudioAnalysis struct {
	Duration float64 // seconds
	Loudness float64 // RMS in [0, 1]
}

var audioClient = &http.Client{Timeout: 60 * time.Second}

func analyzeAudio(ctx context.Context, url string) (AudioAnalysis, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return AudioAnalysis{}, fmt.Errorf("audio request: %w", err)
	}
	// #nosec G107 -- URL comes from the generation provider's status response
	resp, err := audioClient.Do(req)
	if err != nil {
		return AudioAnalysis{}, fmt.Errorf("audio fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AudioAnalysis{}, fmt.Errorf("audio fetch status %d", resp.StatusCode)
	}
	return decodeAudio(resp.Body)
}

func decodeAudio(r io.Reader) (AudioAnalysis, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return AudioAnalysis{}, fmt.Errorf("audio decode failed: %w", err)
	}

	buf := make([]byte, 4096)
	var sumSquares, count float64
	var total int64

	for {
		n, err := decoder.Read(buf)
		if n > 0 {
			total += int64(n)
			for i := 0; i+1 < n; i += 2 {
				sample := int16(buf[i]) | int16(buf[i+1])<<8
				val := float64(sample)
				sumSquares += val * val
				count++
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return AudioAnalysis{}, fmt.Errorf("audio read failed: %w", err)
		}
	}

	if count == 0 || decoder.SampleRate() <= 0 {
		return AudioAnalysis{}, errors.New("audio contains no samples")
	}

	rms := math.Sqrt(sumSquares/count) / 32768.0
	return AudioAnalysis{
		Duration: float64(total) / bytesPerFrame / float64(decoder.SampleRate()),
		Loudness: max(0, min(rms, 1)),
	}, nil
}

// AnalyzeAudioFunc allows tests to override the analyzer implementation.
var AnalyzeAudioFunc = analyzeAudio
