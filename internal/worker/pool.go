// Package worker runs audio generations in the background: each job submits
// its prompt once and polls the provider until a terminal status or max wait.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
	"github.com/ewilliams-labs/natal-symphony/internal/obvy"
)

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("worker pool is stopped")

var errStillGenerating = errors.New("generation still in progress")

// Config sizes the pool and bounds polling.
type Config struct {
	Workers      int
	QueueSize    int
	PollInterval time.Duration
	MaxWait      time.Duration
}

// Pool manages background workers for generation jobs.
type Pool struct {
	repo      ports.GenerationRepository
	generator ports.AudioGenerator
	cfg       Config
	logger    *zap.Logger
	metrics   *obvy.Metrics

	analyze func(ctx context.Context, url string) (AudioAnalysis, error)
	now     func() time.Time

	jobs   chan string
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// compile-time interface assertion
var _ ports.GenerationQueue = (*Pool)(nil)

// NewPool creates a worker pool. Non-positive sizes fall back to one worker
// and a one-slot queue.
func NewPool(repo ports.GenerationRepository, generator ports.AudioGenerator, cfg Config, logger *zap.Logger, metrics *obvy.Metrics) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		repo:      repo,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		analyze:   AnalyzeAudioFunc,
		now:       time.Now,
		jobs:      make(chan string, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for id := range p.jobs {
				p.metrics.SetQueueDepth(len(p.jobs))
				p.processJob(id)
			}
		}()
	}
}

// Stop cancels in-flight polling and waits for the workers to exit. Jobs still
// queued are skipped and stay generating.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cancel()
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Enqueue queues a generation without blocking.
func (p *Pool) Enqueue(_ context.Context, generationID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- generationID:
		p.metrics.SetQueueDepth(len(p.jobs))
		return nil
	default:
		p.logger.Warn("generation queue full", zap.String("generation_id", generationID))
		return ports.ErrQueueFull
	}
}

func (p *Pool) processJob(id string) {
	log := p.logger.With(zap.String("generation_id", id))
	if p.ctx.Err() != nil {
		return
	}

	g, err := p.repo.GetGeneration(p.ctx, id)
	if err != nil {
		log.Error("failed to load generation", zap.Error(err))
		return
	}
	if g.Status.Terminal() {
		log.Debug("generation already finished", zap.String("status", string(g.Status)))
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.MaxWait)
	defer cancel()

	providerID, err := p.generator.Submit(ctx, g.Prompt, g.Metadata.Duration)
	if err != nil {
		p.finish(log, &g, nil, p.classify(err))
		return
	}
	g.ProviderID = providerID
	g.UpdatedAt = p.now().UTC()
	if err := p.repo.UpdateGeneration(p.ctx, g); err != nil {
		log.Warn("failed to store provider id", zap.Error(err))
	}
	log = log.With(zap.String("provider_id", providerID))
	log.Info("generation submitted")

	status, err := p.poll(ctx, providerID)
	if err != nil {
		p.finish(log, &g, nil, p.classify(err))
		return
	}
	p.finish(log, &g, &status, nil)
}

// poll asks the provider for status with exponential backoff until the job
// leaves the generating state or ctx ends.
func (p *Pool) poll(ctx context.Context, providerID string) (ports.ProviderStatus, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.PollInterval
	b.MaxInterval = 6 * p.cfg.PollInterval
	b.MaxElapsedTime = 0
	b.Reset()

	var result ports.ProviderStatus
	op := func() error {
		st, err := p.generator.Status(ctx, providerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return backoff.Permanent(fmt.Errorf("%w: provider lost job %s", domain.ErrGenerationFailed, providerID))
			}
			return err
		}
		switch st.Status {
		case domain.StatusCompleted:
			result = st
			return nil
		case domain.StatusFailed:
			return backoff.Permanent(fmt.Errorf("%w: provider reported failure", domain.ErrGenerationFailed))
		default:
			return errStillGenerating
		}
	}
	notify := func(err error, next time.Duration) {
		if !errors.Is(err, errStillGenerating) {
			p.logger.Warn("generation status check failed", zap.String("provider_id", providerID), zap.Duration("retry_in", next), zap.Error(err))
		}
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return ports.ProviderStatus{}, err
	}
	return result, nil
}

// classify maps a job error onto the domain taxonomy. A deadline that was not
// caused by shutdown is a generation timeout.
func (p *Pool) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && p.ctx.Err() == nil {
		return fmt.Errorf("%w: no result within %s", domain.ErrGenerationTimeout, p.cfg.MaxWait)
	}
	return err
}

func (p *Pool) finish(log *zap.Logger, g *domain.GeneratedAudio, status *ports.ProviderStatus, jobErr error) {
	// Shutdown interrupted the job; leave the record for a later run.
	if p.ctx.Err() != nil && jobErr != nil {
		log.Warn("generation interrupted by shutdown", zap.Error(jobErr))
		return
	}

	now := p.now().UTC()
	if jobErr != nil {
		reason := domain.FailureReasonFor(jobErr)
		if err := g.Fail(reason, now); err != nil {
			log.Error("invalid generation transition", zap.Error(err))
			return
		}
		log.Warn("generation failed", zap.String("reason", reason), zap.Error(jobErr))
	} else {
		if err := g.Complete(status.AudioURL, status.VideoURL, now); err != nil {
			log.Error("invalid generation transition", zap.Error(err))
			return
		}
		p.measure(log, g)
		log.Info("generation completed", zap.String("audio_url", g.AudioURL))
	}

	if err := p.repo.UpdateGeneration(context.WithoutCancel(p.ctx), *g); err != nil {
		log.Error("failed to store generation result", zap.Error(err))
	}
	p.metrics.RecordGeneration(string(g.Status), g.FailureReason)
}

func (p *Pool) measure(log *zap.Logger, g *domain.GeneratedAudio) {
	if g.AudioURL == "" || p.analyze == nil {
		return
	}
	a, err := p.analyze(p.ctx, g.AudioURL)
	if err != nil {
		log.Warn("audio analysis failed", zap.Error(err))
		return
	}
	g.Metadata.MeasuredDuration = a.Duration
	g.Metadata.Loudness = a.Loudness
}
