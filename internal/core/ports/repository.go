package ports

import (
	"context"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

// ChartRepository stores saved charts per user. Implementations return
// domain.ErrNotFound when the chart does not exist or belongs to someone else.
type ChartRepository interface {
	CreateChart(ctx context.Context, c domain.SavedChart) (domain.SavedChart, error)
	ListCharts(ctx context.Context, userID string) ([]domain.SavedChart, error)
	GetChart(ctx context.Context, userID, id string) (domain.SavedChart, error)
	DeleteChart(ctx context.Context, userID, id string) error
}

// GenerationRepository stores generation history.
type GenerationRepository interface {
	CreateGeneration(ctx context.Context, g domain.GeneratedAudio) error
	GetGeneration(ctx context.Context, id string) (domain.GeneratedAudio, error)
	ListGenerations(ctx context.Context, userID string, limit int) ([]domain.GeneratedAudio, error)
	UpdateGeneration(ctx context.Context, g domain.GeneratedAudio) error
}
