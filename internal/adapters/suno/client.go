// Package suno provides an adapter for the Suno audio generation API.
// It submits composition prompts and polls job status; Mock stands in when
// no API key is configured.
package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ewilliams-labs/natal-symphony/internal/adapters/retry"
	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

const (
	ServiceName    = "suno"
	DefaultBaseURL = "https://api.suno.ai"
	defaultStyle   = "ambient_electronic"
)

// Client talks to the Suno HTTP API with bearer authentication.
// Status polls retry transient failures; Submit is sent exactly once so a
// lost response never starts a second job.
type Client struct {
	baseURL string
	doer    *retry.Doer
	submit  *retry.Doer
}

// compile-time interface assertion
var _ ports.AudioGenerator = (*Client)(nil)

type generateRequest struct {
	Prompt       string `json:"prompt"`
	Duration     int    `json:"duration"`
	Style        string `json:"style"`
	Instrumental bool   `json:"instrumental"`
	Private      bool   `json:"private"`
}

type generateResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	AudioURL string `json:"audio_url"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error,omitempty"`
}

// NewClient constructs a client. base supplies the underlying transport
// (tracing, timeouts); the API key is attached to every request.
func NewClient(base *http.Client, baseURL, apiKey string, opts ...retry.Option) *Client {
	if base == nil {
		base = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	}))
	authed.Timeout = base.Timeout

	return &Client{
		baseURL: baseURL,
		doer:    retry.New(authed, ServiceName, opts...),
		submit:  retry.New(authed, ServiceName, append(slices.Clip(opts), retry.WithMaxRetries(1))...),
	}
}

// Submit starts a generation and returns the provider job id.
func (c *Client) Submit(ctx context.Context, prompt string, duration int) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:       prompt,
		Duration:     duration,
		Style:        defaultStyle,
		Instrumental: true,
		Private:      false,
	})
	if err != nil {
		return "", fmt.Errorf("suno: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("suno: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	out, err := c.do(c.submit, req)
	if err != nil {
		return "", fmt.Errorf("suno: submit: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("suno: submit: %w", &ports.UpstreamError{
			Service: ServiceName, StatusCode: http.StatusOK, Err: errors.New("response carried no job id"),
		})
	}
	return out.ID, nil
}

// Status polls one job.
func (c *Client) Status(ctx context.Context, providerID string) (ports.ProviderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/generate/"+url.PathEscape(providerID), nil)
	if err != nil {
		return ports.ProviderStatus{}, fmt.Errorf("suno: build request: %w", err)
	}

	out, err := c.do(c.doer, req)
	if err != nil {
		return ports.ProviderStatus{}, fmt.Errorf("suno: status %s: %w", providerID, err)
	}
	return ports.ProviderStatus{
		Status:   mapStatus(out.Status),
		AudioURL: out.AudioURL,
		VideoURL: out.VideoURL,
	}, nil
}

func (c *Client) do(doer *retry.Doer, req *http.Request) (generateResponse, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := doer.Do(req)
	if err != nil {
		return generateResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return generateResponse{}, retry.StatusError(ServiceName, resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return generateResponse{}, &ports.UpstreamError{Service: ServiceName, StatusCode: resp.StatusCode, Err: err}
	}
	return out, nil
}

// mapStatus folds provider-specific states into the three lifecycle values.
func mapStatus(s string) domain.GenerationStatus {
	switch strings.ToLower(s) {
	case "complete", "completed", "succeeded", "success":
		return domain.StatusCompleted
	case "error", "failed", "failure", "cancelled", "canceled":
		return domain.StatusFailed
	default:
		return domain.StatusGenerating
	}
}
