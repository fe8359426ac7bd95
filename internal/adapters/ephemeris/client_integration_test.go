package ephemeris

import (
	"context"
	"os"
	"testing"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

// TestClient_NatalChart_Integration tests against a live ephemeris service.
// This test is skipped unless RUN_EPHEMERIS_TESTS=true is set.
func TestClient_NatalChart_Integration(t *testing.T) {
	if os.Getenv("RUN_EPHEMERIS_TESTS") != "true" {
		t.Skip("Skipping ephemeris-dependent test (set RUN_EPHEMERIS_TESTS=true to enable)")
	}

	baseURL := os.Getenv("EPHEMERIS_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	chart, err := NewClient(nil, baseURL).NatalChart(context.Background(), domain.BirthData{
		Year: 1990, Month: 6, Day: 15, Hour: 14, Minute: 30,
		Latitude: 40.7128, Longitude: -74.006, TimezoneOffset: -4,
	})
	if err != nil {
		t.Fatalf("NatalChart() error = %v", err)
	}
	if len(chart.Planets) != len(domain.Bodies()) {
		t.Errorf("expected %d planets, got %d", len(domain.Bodies()), len(chart.Planets))
	}
	t.Logf("Chart: %+v", chart)
}
