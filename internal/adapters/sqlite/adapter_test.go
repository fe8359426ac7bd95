package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return a
}

func mustChart(t *testing.T, userID, name string, tz float64) domain.SavedChart {
	t.Helper()
	c, err := domain.NewSavedChart(userID, name, "Somewhere", domain.BirthData{
		Year: 1990, Month: 6, Day: 15, Hour: 14, Minute: 30,
		Latitude: 40.7128, Longitude: -74.006, TimezoneOffset: tz,
	})
	if err != nil {
		t.Fatalf("new saved chart: %v", err)
	}
	return c
}

func TestAdapter_GetChart(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, a *Adapter) (userID, id string)
		wantErr  error
		wantName string
		wantTZ   int
	}{
		{
			name: "not found",
			setup: func(t *testing.T, a *Adapter) (string, string) {
				return "u1", "missing"
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "other user's chart is hidden",
			setup: func(t *testing.T, a *Adapter) (string, string) {
				c, err := a.CreateChart(context.Background(), mustChart(t, "owner", "Mine", 0))
				if err != nil {
					t.Fatalf("create chart: %v", err)
				}
				return "intruder", c.ID
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "returns chart with minute offset",
			setup: func(t *testing.T, a *Adapter) (string, string) {
				c, err := a.CreateChart(context.Background(), mustChart(t, "u1", "Mumbai", 5.5))
				if err != nil {
					t.Fatalf("create chart: %v", err)
				}
				return "u1", c.ID
			},
			wantName: "Mumbai",
			wantTZ:   330,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t)

			userID, id := tt.setup(t, a)
			got, err := a.GetChart(context.Background(), userID, id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("get chart: %v", err)
			}
			if got.ChartName != tt.wantName {
				t.Fatalf("name: got %q, want %q", got.ChartName, tt.wantName)
			}
			if got.TimezoneOffset != tt.wantTZ {
				t.Fatalf("timezone: got %d, want %d", got.TimezoneOffset, tt.wantTZ)
			}
			b := got.BirthData()
			if b.Hour != 14 || b.Minute != 30 || b.TimezoneOffset != 5.5 || b.HouseSystem != domain.HousePlacidus {
				t.Fatalf("birth data round trip mismatch: %+v", b)
			}
		})
	}
}

func TestAdapter_ListCharts_NewestFirst(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if _, err := a.CreateChart(ctx, mustChart(t, "u1", name, 0)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if _, err := a.CreateChart(ctx, mustChart(t, "u2", "elsewhere", 0)); err != nil {
		t.Fatalf("create other: %v", err)
	}

	got, err := a.ListCharts(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 charts, got %d", len(got))
	}
	if got[0].ChartName != "third" || got[2].ChartName != "first" {
		t.Fatalf("expected newest first, got %q..%q", got[0].ChartName, got[2].ChartName)
	}

	empty, err := a.ListCharts(ctx, "nobody")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}
}

func TestAdapter_DeleteChart(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	c, err := a.CreateChart(ctx, mustChart(t, "u1", "gone", 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.DeleteChart(ctx, "u2", c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if err := a.DeleteChart(ctx, "u1", c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := a.DeleteChart(ctx, "u1", c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestAdapter_Generations(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	t0 := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	meta := domain.GenerationMetadata{Duration: 225, Movements: 4, Key: "C", Tempo: 85}

	for i, id := range []string{"g1", "g2", "g3"} {
		g, err := domain.NewGeneratedAudio(id, "u1", "prompt "+id, meta, t0.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("new generation: %v", err)
		}
		if err := a.CreateGeneration(ctx, *g); err != nil {
			t.Fatalf("create generation: %v", err)
		}
	}

	g, err := a.GetGeneration(ctx, "g2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g.Status != domain.StatusGenerating || g.Metadata != meta || !g.CreatedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected generation %+v", g)
	}

	if err := g.Complete("https://cdn.test/a.mp3", "https://cdn.test/a.mp4", t0.Add(time.Hour)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	g.ProviderID = "suno_1"
	g.Metadata.MeasuredDuration = 224.5
	if err := a.UpdateGeneration(ctx, g); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := a.GetGeneration(ctx, "g2")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Status != domain.StatusCompleted || got.AudioURL != "https://cdn.test/a.mp3" || got.ProviderID != "suno_1" {
		t.Fatalf("update not persisted: %+v", got)
	}
	if got.Metadata.MeasuredDuration != 224.5 {
		t.Fatalf("measured duration: got %v", got.Metadata.MeasuredDuration)
	}

	list, err := a.ListGenerations(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "g3" || list[1].ID != "g2" {
		t.Fatalf("expected [g3 g2], got %d items", len(list))
	}

	all, err := a.ListGenerations(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 generations, got %d", len(all))
	}

	if _, err := a.GetGeneration(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := a.UpdateGeneration(ctx, domain.GeneratedAudio{ID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestNewAdapter_UnreachablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "natal.db")

	a, err := NewAdapter(path)
	if err == nil {
		_ = a.Close()
		t.Fatalf("expected an error for %s", path)
	}
	if a != nil {
		t.Fatalf("expected nil adapter on failure, got %+v", a)
	}
}
