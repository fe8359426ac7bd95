package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
	"github.com/ewilliams-labs/natal-symphony/internal/core/prompt"
)

// Orchestrator coordinates the ephemeris, the pure chart pipeline, persistence
// and the generation queue.
type Orchestrator struct {
	ephemeris   ports.EphemerisProvider
	locations   ports.LocationSearcher
	charts      ports.ChartRepository
	generations ports.GenerationRepository
	queue       ports.GenerationQueue
	logger      *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewOrchestrator constructs an Orchestrator. A nil logger discards output.
func NewOrchestrator(
	ephemeris ports.EphemerisProvider,
	locations ports.LocationSearcher,
	charts ports.ChartRepository,
	generations ports.GenerationRepository,
	queue ports.GenerationQueue,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		ephemeris:   ephemeris,
		locations:   locations,
		charts:      charts,
		generations: generations,
		queue:       queue,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// ChartResult is a natal chart with its aspects and per-planet musical character.
type ChartResult struct {
	Chart      domain.NatalChart         `json:"chart"`
	Aspects    []domain.CalculatedAspect `json:"aspects"`
	Signatures []domain.MusicalSignature `json:"musical_signatures"`
}

// TransitResult compares the current sky with a natal chart.
type TransitResult struct {
	Natal    domain.NatalChart          `json:"natal_chart"`
	Current  domain.NatalChart          `json:"current_chart"`
	Transits []domain.CalculatedTransit `json:"transits"`
}

// CompositionResult is everything needed to describe and request a symphony.
type CompositionResult struct {
	Chart       domain.NatalChart           `json:"chart"`
	Aspects     []domain.CalculatedAspect   `json:"aspects"`
	Transits    []domain.CalculatedTransit  `json:"transits"`
	Composition domain.CompositionStructure `json:"composition"`
	Analysis    domain.HarmonicAnalysis     `json:"harmonic_analysis"`
	Prompt      string                      `json:"prompt"`
}

// GenerationRequest asks for audio for a birth chart. Prompt overrides the
// rendered brief when set.
type GenerationRequest struct {
	Birth        domain.BirthData `json:"birth_data"`
	LocationName string           `json:"location_name,omitempty"`
	Prompt       string           `json:"prompt,omitempty"`
}

// CalculateNatalChart fetches planet positions and derives the natal aspects.
func (o *Orchestrator) CalculateNatalChart(ctx context.Context, birth domain.BirthData) (ChartResult, error) {
	chart, err := o.natalChart(ctx, birth)
	if err != nil {
		return ChartResult{}, err
	}
	return ChartResult{
		Chart:      chart,
		Aspects:    domain.DetectAspects(chart.Planets),
		Signatures: domain.Signatures(chart.Planets),
	}, nil
}

// CalculateTransits fetches the natal chart and the current sky concurrently
// and detects the transits between them.
func (o *Orchestrator) CalculateTransits(ctx context.Context, birth domain.BirthData) (TransitResult, error) {
	natal, current, err := o.natalAndCurrent(ctx, birth)
	if err != nil {
		return TransitResult{}, err
	}
	return TransitResult{
		Natal:    natal,
		Current:  current,
		Transits: domain.DetectTransits(current.Planets, natal.Planets),
	}, nil
}

// ComposeSymphony runs the full pipeline up to the rendered prompt.
func (o *Orchestrator) ComposeSymphony(ctx context.Context, birth domain.BirthData, locationName string) (CompositionResult, error) {
	natal, current, err := o.natalAndCurrent(ctx, birth)
	if err != nil {
		return CompositionResult{}, err
	}

	aspects := domain.DetectAspects(natal.Planets)
	transits := domain.DetectTransits(current.Planets, natal.Planets)
	composition := domain.Synthesize(aspects, transits)

	text, err := prompt.Format(prompt.Input{
		Composition:  composition,
		Aspects:      aspects,
		Transits:     transits,
		Birth:        birth,
		LocationName: locationName,
	})
	if err != nil {
		return CompositionResult{}, fmt.Errorf("service: failed to format prompt: %w", err)
	}

	o.logger.Debug("composed symphony",
		zap.Int("aspects", len(aspects)),
		zap.Int("transits", len(transits)),
		zap.Int("strong_aspects", len(domain.StrongAspects(aspects))))

	return CompositionResult{
		Chart:       natal,
		Aspects:     aspects,
		Transits:    transits,
		Composition: composition,
		Analysis:    domain.AnalyzeHarmony(aspects),
		Prompt:      text,
	}, nil
}

// RequestGeneration composes the chart, stores a generating record and hands
// it to the queue. When the queue refuses the job the record is failed and
// the queue error is returned alongside it.
func (o *Orchestrator) RequestGeneration(ctx context.Context, userID string, req GenerationRequest) (domain.GeneratedAudio, error) {
	result, err := o.ComposeSymphony(ctx, req.Birth, req.LocationName)
	if err != nil {
		return domain.GeneratedAudio{}, err
	}
	text := result.Prompt
	if req.Prompt != "" {
		text = req.Prompt
	}

	g, err := domain.NewGeneratedAudio(o.newID(), userID, text, domain.MetadataFor(result.Composition), o.now().UTC())
	if err != nil {
		return domain.GeneratedAudio{}, fmt.Errorf("service: invalid generation: %w", err)
	}
	if err := o.generations.CreateGeneration(ctx, *g); err != nil {
		return domain.GeneratedAudio{}, fmt.Errorf("service: failed to store generation: %w", err)
	}

	if err := o.queue.Enqueue(ctx, g.ID); err != nil {
		o.logger.Warn("generation not queued", zap.String("generation_id", g.ID), zap.Error(err))
		if ferr := g.Fail(domain.ReasonProviderFailed, o.now().UTC()); ferr == nil {
			if uerr := o.generations.UpdateGeneration(ctx, *g); uerr != nil {
				o.logger.Error("failed to mark generation failed", zap.String("generation_id", g.ID), zap.Error(uerr))
			}
		}
		return *g, fmt.Errorf("service: failed to queue generation: %w", err)
	}

	o.logger.Info("generation queued", zap.String("generation_id", g.ID), zap.String("user_id", userID))
	return *g, nil
}

// GetGeneration returns one generation record.
func (o *Orchestrator) GetGeneration(ctx context.Context, id string) (domain.GeneratedAudio, error) {
	g, err := o.generations.GetGeneration(ctx, id)
	if err != nil {
		return domain.GeneratedAudio{}, fmt.Errorf("service: failed to load generation: %w", err)
	}
	return g, nil
}

// ListGenerations returns a user's history, newest first.
func (o *Orchestrator) ListGenerations(ctx context.Context, userID string, limit int) ([]domain.GeneratedAudio, error) {
	list, err := o.generations.ListGenerations(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list generations: %w", err)
	}
	return list, nil
}

// SearchLocations proxies to the location searcher.
func (o *Orchestrator) SearchLocations(ctx context.Context, query string) ([]domain.Location, error) {
	locs, err := o.locations.SearchLocations(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("service: failed to search locations: %w", err)
	}
	return locs, nil
}

// SaveChart validates and stores a chart for the user.
func (o *Orchestrator) SaveChart(ctx context.Context, userID, name, location string, birth domain.BirthData) (domain.SavedChart, error) {
	c, err := domain.NewSavedChart(userID, name, location, birth)
	if err != nil {
		return domain.SavedChart{}, fmt.Errorf("service: invalid chart: %w", err)
	}
	saved, err := o.charts.CreateChart(ctx, c)
	if err != nil {
		return domain.SavedChart{}, fmt.Errorf("service: failed to save chart: %w", err)
	}
	return saved, nil
}

// ListCharts returns the user's charts, newest first.
func (o *Orchestrator) ListCharts(ctx context.Context, userID string) ([]domain.SavedChart, error) {
	list, err := o.charts.ListCharts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list charts: %w", err)
	}
	return list, nil
}

// GetChart returns one of the user's charts.
func (o *Orchestrator) GetChart(ctx context.Context, userID, id string) (domain.SavedChart, error) {
	c, err := o.charts.GetChart(ctx, userID, id)
	if err != nil {
		return domain.SavedChart{}, fmt.Errorf("service: failed to load chart: %w", err)
	}
	return c, nil
}

// DeleteChart removes one of the user's charts.
func (o *Orchestrator) DeleteChart(ctx context.Context, userID, id string) error {
	if err := o.charts.DeleteChart(ctx, userID, id); err != nil {
		return fmt.Errorf("service: failed to delete chart: %w", err)
	}
	return nil
}

// pinger is implemented by stores that can report their own health.
type pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports whether the store and the ephemeris can serve requests.
func (o *Orchestrator) Ready(ctx context.Context) error {
	if p, ok := o.generations.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("service: database: %w", err)
		}
	}

	h, err := o.ephemeris.Health(ctx)
	if err != nil {
		return fmt.Errorf("service: ephemeris health: %w", err)
	}
	if !h.Healthy() {
		return fmt.Errorf("service: %w", &ports.UpstreamError{
			Service: "ephemeris",
			Err:     fmt.Errorf("status %q, ephemeris files loaded: %t", h.Status, h.EphemerisFiles),
		})
	}
	return nil
}

func (o *Orchestrator) natalChart(ctx context.Context, birth domain.BirthData) (domain.NatalChart, error) {
	if err := birth.Validate(); err != nil {
		return domain.NatalChart{}, fmt.Errorf("service: %w", err)
	}
	chart, err := o.ephemeris.NatalChart(ctx, birth)
	if err != nil {
		return domain.NatalChart{}, fmt.Errorf("service: failed to fetch natal chart: %w", err)
	}
	if err := domain.ValidatePlanets(chart.Planets); err != nil {
		return domain.NatalChart{}, fmt.Errorf("service: ephemeris returned bad data: %w", err)
	}
	return chart, nil
}

// natalAndCurrent fetches the birth chart and the sky at o.now() for the birth
// place. Either failure cancels the other request.
func (o *Orchestrator) natalAndCurrent(ctx context.Context, birth domain.BirthData) (domain.NatalChart, domain.NatalChart, error) {
	if err := birth.Validate(); err != nil {
		return domain.NatalChart{}, domain.NatalChart{}, fmt.Errorf("service: %w", err)
	}

	var natal, current domain.NatalChart
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		natal, err = o.natalChart(gctx, birth)
		return err
	})
	g.Go(func() error {
		sky := domain.SkyAt(o.now(), birth.Latitude, birth.Longitude, birth.HouseSystem)
		var err error
		current, err = o.ephemeris.NatalChart(gctx, sky)
		if err != nil {
			return fmt.Errorf("service: failed to fetch current sky: %w", err)
		}
		if err := domain.ValidatePlanets(current.Planets); err != nil {
			return fmt.Errorf("service: ephemeris returned bad data: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.NatalChart{}, domain.NatalChart{}, err
	}
	return natal, current, nil
}
