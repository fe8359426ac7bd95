package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
	"github.com/ewilliams-labs/natal-symphony/internal/obvy"
)

type fakeGenerator struct {
	mu        sync.Mutex
	submitErr error
	statuses  []ports.ProviderStatus // consumed in order, the last one repeats
	statusErr error
	submits   int
	polls     int
}

func (f *fakeGenerator) Submit(_ context.Context, prompt string, duration int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "prov-1", nil
}

func (f *fakeGenerator) Status(ctx context.Context, _ string) (ports.ProviderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.statusErr != nil {
		return ports.ProviderStatus{}, f.statusErr
	}
	i := min(f.polls-1, len(f.statuses)-1)
	return f.statuses[i], nil
}

func (f *fakeGenerator) counts() (submits, polls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits, f.polls
}

type memRepo struct {
	mu      sync.Mutex
	records map[string]domain.GeneratedAudio
	updates int
}

func newMemRepo(gs ...domain.GeneratedAudio) *memRepo {
	r := &memRepo{records: map[string]domain.GeneratedAudio{}}
	for _, g := range gs {
		r.records[g.ID] = g
	}
	return r
}

func (r *memRepo) CreateGeneration(_ context.Context, g domain.GeneratedAudio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[g.ID] = g
	return nil
}

func (r *memRepo) GetGeneration(_ context.Context, id string) (domain.GeneratedAudio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.records[id]
	if !ok {
		return domain.GeneratedAudio{}, domain.ErrNotFound
	}
	return g, nil
}

func (r *memRepo) ListGenerations(context.Context, string, int) ([]domain.GeneratedAudio, error) {
	return nil, errors.New("not implemented")
}

func (r *memRepo) UpdateGeneration(_ context.Context, g domain.GeneratedAudio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	r.records[g.ID] = g
	return nil
}

func newGeneration(t *testing.T, id string) domain.GeneratedAudio {
	t.Helper()
	meta := domain.GenerationMetadata{Duration: 225, Movements: 4, Key: "C", Tempo: 85}
	g, err := domain.NewGeneratedAudio(id, "u1", "a cosmic prompt", meta, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return *g
}

func newTestPool(repo *memRepo, gen *fakeGenerator, maxWait time.Duration) *Pool {
	p := NewPool(repo, gen, Config{Workers: 2, QueueSize: 4, PollInterval: time.Millisecond, MaxWait: maxWait}, zap.NewNop(), obvy.NewMetrics())
	p.analyze = func(context.Context, string) (AudioAnalysis, error) {
		return AudioAnalysis{Duration: 224.5, Loudness: 0.3}, nil
	}
	return p
}

// waitForTerminal polls the repo until the record leaves the generating state.
func waitForTerminal(t *testing.T, repo *memRepo, id string) domain.GeneratedAudio {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		g, err := repo.GetGeneration(context.Background(), id)
		require.NoError(t, err)
		if g.Status.Terminal() {
			return g
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("generation %s never finished", id)
	return domain.GeneratedAudio{}
}

func TestPool_ProcessJob(t *testing.T) {
	generating := ports.ProviderStatus{Status: domain.StatusGenerating}
	completed := ports.ProviderStatus{Status: domain.StatusCompleted, AudioURL: "https://cdn.test/a.mp3", VideoURL: "https://cdn.test/a.mp4"}

	tests := []struct {
		name       string
		gen        *fakeGenerator
		maxWait    time.Duration
		wantStatus domain.GenerationStatus
		wantReason string
	}{
		{
			name:       "completes after polling",
			gen:        &fakeGenerator{statuses: []ports.ProviderStatus{generating, generating, completed}},
			maxWait:    5 * time.Second,
			wantStatus: domain.StatusCompleted,
		},
		{
			name:       "provider reports failure",
			gen:        &fakeGenerator{statuses: []ports.ProviderStatus{generating, {Status: domain.StatusFailed}}},
			maxWait:    5 * time.Second,
			wantStatus: domain.StatusFailed,
			wantReason: domain.ReasonProviderFailed,
		},
		{
			name:       "times out while generating",
			gen:        &fakeGenerator{statuses: []ports.ProviderStatus{generating}},
			maxWait:    40 * time.Millisecond,
			wantStatus: domain.StatusFailed,
			wantReason: domain.ReasonTimeout,
		},
		{
			name:       "submit upstream failure",
			gen:        &fakeGenerator{submitErr: &ports.UpstreamError{Service: "suno", StatusCode: 503}},
			maxWait:    5 * time.Second,
			wantStatus: domain.StatusFailed,
			wantReason: domain.ReasonUpstream,
		},
		{
			name:       "provider lost the job",
			gen:        &fakeGenerator{statusErr: domain.ErrNotFound},
			maxWait:    5 * time.Second,
			wantStatus: domain.StatusFailed,
			wantReason: domain.ReasonProviderFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

			repo := newMemRepo(newGeneration(t, "g1"))
			p := newTestPool(repo, tt.gen, tt.maxWait)
			p.Start()
			defer p.Stop()

			require.NoError(t, p.Enqueue(context.Background(), "g1"))
			got := waitForTerminal(t, repo, "g1")

			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantReason, got.FailureReason)
			submits, _ := tt.gen.counts()
			assert.Equal(t, 1, submits, "prompt is submitted exactly once")

			if tt.wantStatus == domain.StatusCompleted {
				assert.Equal(t, "prov-1", got.ProviderID)
				assert.Equal(t, "https://cdn.test/a.mp3", got.AudioURL)
				assert.Equal(t, 224.5, got.Metadata.MeasuredDuration)
				assert.Equal(t, 0.3, got.Metadata.Loudness)
			}
		})
	}
}

func TestPool_SkipsFinishedGenerations(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	g := newGeneration(t, "done")
	require.NoError(t, g.Complete("https://cdn.test/x.mp3", "", time.Now()))
	repo := newMemRepo(g)
	gen := &fakeGenerator{}
	p := newTestPool(repo, gen, time.Second)
	p.Start()

	require.NoError(t, p.Enqueue(context.Background(), "done"))
	p.Stop()

	submits, _ := gen.counts()
	assert.Zero(t, submits)
}

func TestPool_EnqueueBackpressure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewPool(newMemRepo(), &fakeGenerator{}, Config{QueueSize: 1}, nil, nil)

	require.NoError(t, p.Enqueue(context.Background(), "a"))
	assert.ErrorIs(t, p.Enqueue(context.Background(), "b"), ports.ErrQueueFull)

	p.Stop()
	assert.ErrorIs(t, p.Enqueue(context.Background(), "c"), ErrStopped)
	assert.NotPanics(t, p.Stop, "stop is idempotent")
}

func TestPool_StopCancelsPolling(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	repo := newMemRepo(newGeneration(t, "g1"))
	gen := &fakeGenerator{statuses: []ports.ProviderStatus{{Status: domain.StatusGenerating}}}
	p := newTestPool(repo, gen, time.Hour)
	p.Start()
	require.NoError(t, p.Enqueue(context.Background(), "g1"))

	require.Eventually(t, func() bool {
		_, polls := gen.counts()
		return polls > 0
	}, 5*time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not cancel polling")
	}

	g, err := repo.GetGeneration(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGenerating, g.Status)
	assert.Equal(t, "prov-1", g.ProviderID)
}
