package suno

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

const (
	DefaultMockDelay = 8 * time.Second
	DemoAudioURL     = "https://www.soundjay.com/misc/sounds/magic-chime-02.mp3"
)

// Mock simulates the provider: every job completes with the demo track once
// the delay has passed.
type Mock struct {
	delay time.Duration
	now   func() time.Time

	mu   sync.Mutex
	seq  uint32
	jobs map[string]time.Time
}

// compile-time interface assertion
var _ ports.AudioGenerator = (*Mock)(nil)

// NewMock constructs a mock generator.
func NewMock(delay time.Duration) *Mock {
	return &Mock{
		delay: delay,
		now:   time.Now,
		jobs:  make(map[string]time.Time),
	}
}

// Submit records the job and returns a suno_-prefixed id.
func (m *Mock) Submit(ctx context.Context, prompt string, duration int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("suno mock: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	hasher := fnv.New32a()
	_, _ = fmt.Fprintf(hasher, "%d:%d:%s", m.seq, duration, prompt)
	id := fmt.Sprintf("suno_%d_%08x", m.now().UnixMilli(), hasher.Sum32())
	m.jobs[id] = m.now()
	return id, nil
}

// Status reports generating until the delay has elapsed.
func (m *Mock) Status(ctx context.Context, providerID string) (ports.ProviderStatus, error) {
	if err := ctx.Err(); err != nil {
		return ports.ProviderStatus{}, fmt.Errorf("suno mock: %w", err)
	}

	m.mu.Lock()
	submitted, ok := m.jobs[providerID]
	m.mu.Unlock()
	if !ok {
		return ports.ProviderStatus{}, fmt.Errorf("suno mock: job %s: %w", providerID, domain.ErrNotFound)
	}

	if m.now().Sub(submitted) < m.delay {
		return ports.ProviderStatus{Status: domain.StatusGenerating}, nil
	}
	return ports.ProviderStatus{Status: domain.StatusCompleted, AudioURL: DemoAudioURL}, nil
}
