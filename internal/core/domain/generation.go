package domain

import (
	"errors"
	"fmt"
	"time"
)

// GenerationStatus is the lifecycle state of an audio generation.
type GenerationStatus string

const (
	StatusGenerating GenerationStatus = "generating"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

// Terminal reports whether no further updates are expected.
func (s GenerationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Failure reasons stored on failed generations.
const (
	ReasonTimeout        = "GENERATION_TIMEOUT"
	ReasonProviderFailed = "GENERATION_FAILED"
	ReasonUpstream       = "UPSTREAM_UNAVAILABLE"
)

// GenerationMetadata is the composition summary kept with a generation.
// MeasuredDuration and Loudness are filled after the audio has been probed.
type GenerationMetadata struct {
	Duration         int     `json:"duration"`
	Movements        int     `json:"movements"`
	Key              string  `json:"key"`
	Tempo            int     `json:"tempo"`
	MeasuredDuration float64 `json:"measured_duration,omitempty"`
	Loudness         float64 `json:"loudness,omitempty"`
}

// MetadataFor summarizes a composition.
func MetadataFor(c CompositionStructure) GenerationMetadata {
	theme := c.PrimaryTheme()
	return GenerationMetadata{
		Duration:  c.TotalDuration,
		Movements: len(c.Movements),
		Key:       theme.Key,
		Tempo:     theme.TempoBase,
	}
}

// GeneratedAudio is one request to the audio provider and its outcome.
type GeneratedAudio struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id,omitempty"`
	ProviderID    string             `json:"provider_id,omitempty"`
	Status        GenerationStatus   `json:"status"`
	Prompt        string             `json:"prompt"`
	AudioURL      string             `json:"audio_url,omitempty"`
	VideoURL      string             `json:"video_url,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	Metadata      GenerationMetadata `json:"metadata"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewGeneratedAudio starts a record in the generating state.
func NewGeneratedAudio(id, userID, prompt string, meta GenerationMetadata, now time.Time) (*GeneratedAudio, error) {
	if id == "" || prompt == "" {
		return nil, fmt.Errorf("%w: id and prompt are required", ErrInvalidArgument)
	}
	return &GeneratedAudio{
		ID:        id,
		UserID:    userID,
		Status:    StatusGenerating,
		Prompt:    prompt,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Complete moves a generating record to completed.
func (g *GeneratedAudio) Complete(audioURL, videoURL string, now time.Time) error {
	if g.Status.Terminal() {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, g.ID, g.Status)
	}
	g.Status = StatusCompleted
	g.AudioURL = audioURL
	g.VideoURL = videoURL
	g.UpdatedAt = now
	return nil
}

// Fail moves a generating record to failed with the given reason.
func (g *GeneratedAudio) Fail(reason string, now time.Time) error {
	if g.Status.Terminal() {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, g.ID, g.Status)
	}
	g.Status = StatusFailed
	g.FailureReason = reason
	g.UpdatedAt = now
	return nil
}

// FailureReasonFor maps a worker error onto the stored reason code.
func FailureReasonFor(err error) string {
	switch {
	case errors.Is(err, ErrGenerationTimeout):
		return ReasonTimeout
	case errors.Is(err, ErrUpstreamUnavailable):
		return ReasonUpstream
	default:
		return ReasonProviderFailed
	}
}
