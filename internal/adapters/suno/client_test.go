package suno

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ewilliams-labs/natal-symphony/internal/adapters/retry"
	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

func TestClient_Submit(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		responseBody string
		wantID       string
		wantErr      bool
	}{
		{
			name:         "Success",
			status:       http.StatusOK,
			responseBody: `{"id":"job-123","status":"queued"}`,
			wantID:       "job-123",
		},
		{
			name:         "Missing id",
			status:       http.StatusOK,
			responseBody: `{"status":"queued"}`,
			wantErr:      true,
		},
		{
			name:         "Unauthorized",
			status:       http.StatusUnauthorized,
			responseBody: `{"error":"bad key"}`,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRequest generateRequest
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/generate" || r.Method != http.MethodPost {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				gotAuth = r.Header.Get("Authorization")
				if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer srv.Close()

			client := NewClient(srv.Client(), srv.URL, "secret-key", retry.WithBaseBackoff(time.Millisecond))
			id, err := client.Submit(context.Background(), "a cosmic prompt", 225)

			if gotAuth != "Bearer secret-key" {
				t.Fatalf("expected bearer auth, got %q", gotAuth)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected err=%v, got %v", tt.wantErr, err)
			}
			if tt.wantErr {
				if !errors.Is(err, domain.ErrUpstreamUnavailable) {
					t.Fatalf("expected upstream error, got %v", err)
				}
				return
			}
			if id != tt.wantID {
				t.Fatalf("id: got %q, want %q", id, tt.wantID)
			}
			want := generateRequest{Prompt: "a cosmic prompt", Duration: 225, Style: "ambient_electronic", Instrumental: true}
			if gotRequest != want {
				t.Fatalf("request mismatch: got %+v, want %+v", gotRequest, want)
			}
		})
	}
}

func TestClient_Submit_SendsOnce(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if posts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{ID: "job-2"})
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, "k", retry.WithBaseBackoff(time.Millisecond))
	id, err := client.Submit(context.Background(), "a cosmic prompt", 225)

	if got := posts.Load(); got != 1 {
		t.Fatalf("expected exactly one POST, got %d", got)
	}
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got id=%q err=%v", id, err)
	}
	if domain.FailureReasonFor(err) != domain.ReasonUpstream {
		t.Fatalf("expected %s failure reason, got %s", domain.ReasonUpstream, domain.FailureReasonFor(err))
	}
}

func TestClient_Status_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{ID: "job-1", Status: "complete"})
	}))
	defer srv.Close()

	got, err := NewClient(srv.Client(), srv.URL, "k", retry.WithBaseBackoff(time.Millisecond)).Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusCompleted || calls.Load() != 2 {
		t.Fatalf("expected completed after one retry, got %+v after %d calls", got, calls.Load())
	}
}

func TestClient_Status(t *testing.T) {
	tests := []struct {
		providerStatus string
		want           domain.GenerationStatus
	}{
		{"queued", domain.StatusGenerating},
		{"streaming", domain.StatusGenerating},
		{"complete", domain.StatusCompleted},
		{"error", domain.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.providerStatus, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/generate/job-1" || r.Method != http.MethodGet {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				_ = json.NewEncoder(w).Encode(generateResponse{ID: "job-1", Status: tt.providerStatus, AudioURL: "https://cdn.test/x.mp3"})
			}))
			defer srv.Close()

			got, err := NewClient(srv.Client(), srv.URL, "k").Status(context.Background(), "job-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.want {
				t.Fatalf("status: got %q, want %q", got.Status, tt.want)
			}
			if got.AudioURL != "https://cdn.test/x.mp3" {
				t.Fatalf("audio url: got %q", got.AudioURL)
			}
		})
	}
}

func TestMock(t *testing.T) {
	m := NewMock(time.Hour)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	id, err := m.Submit(context.Background(), "prompt", 225)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	other, _ := m.Submit(context.Background(), "prompt", 225)
	if id == other {
		t.Fatalf("expected distinct ids, got %q twice", id)
	}

	st, err := m.Status(context.Background(), id)
	if err != nil || st.Status != domain.StatusGenerating {
		t.Fatalf("expected generating, got %+v %v", st, err)
	}

	clock = clock.Add(time.Hour)
	st, err = m.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != domain.StatusCompleted || st.AudioURL != DemoAudioURL {
		t.Fatalf("expected completed demo track, got %+v", st)
	}

	if _, err := m.Status(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
