package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/adapters/retry"
	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

const searchBody = `[
  {"place_id": 307473, "display_name": "New York, United States", "lat": "40.7127281", "lon": "-74.0060152"},
  {"place_id": 1, "display_name": "Broken", "lat": "north", "lon": "0"},
  {"place_id": 9, "display_name": "Tokyo, Japan", "lat": "35.6768601", "lon": "139.7638947"}
]`

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		q := r.URL.Query()
		if q.Get("format") != "json" || q.Get("limit") != "5" || q.Get("q") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_SearchLocations(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, searchBody)
	client, err := NewClient(srv.Client(), Config{BaseURL: srv.URL, UserAgent: "test-agent"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := client.SearchLocations(context.Background(), " New York ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 locations (one unparsable skipped), got %d", len(got))
	}
	if got[0].TimezoneOffset != -5 {
		t.Fatalf("expected offset -5, got %v", got[0].TimezoneOffset)
	}
	if got[1].TimezoneOffset != 9 || got[1].PlaceID != 9 {
		t.Fatalf("unexpected second location %+v", got[1])
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
}

func TestClient_SearchLocations_ShortQuery(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, searchBody)
	client, err := NewClient(srv.Client(), Config{BaseURL: srv.URL, UserAgent: "test-agent"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	for _, q := range []string{"", "NY", "  ab  "} {
		got, err := client.SearchLocations(context.Background(), q)
		if err != nil {
			t.Fatalf("query %q: unexpected error: %v", q, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("query %q: expected empty non-nil list, got %#v", q, got)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("short queries must not reach upstream, got %d calls", calls.Load())
	}
}

func TestClient_SearchLocations_Cached(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, searchBody)
	client, err := NewClient(srv.Client(), Config{
		BaseURL: srv.URL, UserAgent: "test-agent", CacheEntries: 100, CacheTTL: time.Minute,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if _, err := client.SearchLocations(context.Background(), "Tokyo"); err != nil {
		t.Fatalf("first search: %v", err)
	}
	client.cache.Wait()
	got, err := client.SearchLocations(context.Background(), "tokyo")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected cached result, got %d locations", len(got))
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
}

func TestClient_SearchLocations_Upstream(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusServiceUnavailable, `busy`)
	client, err := NewClient(srv.Client(), Config{BaseURL: srv.URL, UserAgent: "test-agent"}, nil,
		retry.WithMaxRetries(2), retry.WithBaseBackoff(time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.SearchLocations(context.Background(), "Paris")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
