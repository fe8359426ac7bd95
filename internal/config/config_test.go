package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), envconfig.MapLookuper(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.UseMockGenerator())
	assert.Equal(t, 8*time.Second, cfg.MockDelay())
	assert.Equal(t, 10*time.Minute, cfg.MaxWait())
	assert.Equal(t, 5*time.Minute, cfg.SkyCacheTTL())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
ephemeris:
  url: http://ephemeris.internal:8000
  cache_dir: /var/cache/ephemeris
generation:
  workers: 4
  max_wait: 2m
`)
	cfg, err := Load(context.Background(), path, envconfig.MapLookuper(map[string]string{
		"EPHEMERIS_URL": "http://override:8000",
		"SUNO_API_KEY":  "secret",
		"LOG_LEVEL":     "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "http://override:8000", cfg.Ephemeris.URL)
	assert.Equal(t, "/var/cache/ephemeris", cfg.Ephemeris.CacheDir)
	assert.Equal(t, 4, cfg.Generation.Workers)
	assert.Equal(t, 2*time.Minute, cfg.MaxWait())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.UseMockGenerator())
	// untouched sections keep their defaults
	assert.Equal(t, 100, cfg.Generation.QueueSize)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Locations.URL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad duration",
			yaml:    "generation:\n  max_wait: soon\n",
			wantErr: "generation.max_wait",
		},
		{
			name:    "zero workers",
			env:     map[string]string{"GENERATION_WORKERS": "0"},
			wantErr: "generation.workers",
		},
		{
			name:    "unknown log level",
			yaml:    "log:\n  level: loud\n",
			wantErr: "log.level",
		},
		{
			name:    "malformed yaml",
			yaml:    "server: [",
			wantErr: "config: parse",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := Load(context.Background(), path, envconfig.MapLookuper(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDurationFallback(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 15*time.Second, c.ReadHeaderTimeout())
	assert.Equal(t, 5*time.Second, c.PollInterval())
}
