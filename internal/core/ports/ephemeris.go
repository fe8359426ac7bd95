package ports

import (
	"context"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

// EphemerisHealth mirrors the ephemeris /health body.
type EphemerisHealth struct {
	Status         string `json:"status"`
	EphemerisFiles bool   `json:"ephemeris_files"`
}

// Healthy reports whether the service can compute charts.
func (h EphemerisHealth) Healthy() bool {
	return h.Status == "healthy" && h.EphemerisFiles
}

// EphemerisProvider computes planet positions for a moment and place.
type EphemerisProvider interface {
	NatalChart(ctx context.Context, birth domain.BirthData) (domain.NatalChart, error)
	Health(ctx context.Context) (EphemerisHealth, error)
}

// LocationSearcher resolves free-text place names.
type LocationSearcher interface {
	SearchLocations(ctx context.Context, query string) ([]domain.Location, error)
}
