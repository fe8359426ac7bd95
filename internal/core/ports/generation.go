package ports

import (
	"context"
	"errors"
	"io"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

// ErrQueueFull indicates the generation queue cannot accept more work.
var ErrQueueFull = errors.New("generation queue is full")

// ProviderStatus is the provider's view of a submitted job.
type ProviderStatus struct {
	Status   domain.GenerationStatus `json:"status"`
	AudioURL string                  `json:"audio_url,omitempty"`
	VideoURL string                  `json:"video_url,omitempty"`
}

// AudioGenerator submits prompts to an audio provider and polls the result.
type AudioGenerator interface {
	Submit(ctx context.Context, prompt string, duration int) (string, error)
	Status(ctx context.Context, providerID string) (ProviderStatus, error)
}

// GenerationQueue hands a stored generation to background processing.
type GenerationQueue interface {
	Enqueue(ctx context.Context, generationID string) error
}

// ScoreWriter renders a composition schedule to a binary score format.
type ScoreWriter interface {
	WriteScore(w io.Writer, c domain.CompositionStructure) error
}
