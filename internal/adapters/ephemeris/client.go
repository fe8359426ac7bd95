// Package ephemeris is the HTTP client for the natal chart calculation service.
package ephemeris

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ewilliams-labs/natal-symphony/internal/adapters/retry"
	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

// ServiceName identifies the ephemeris in upstream errors and metrics.
const ServiceName = "ephemeris"

// Client talks to the ephemeris over HTTP.
type Client struct {
	doer    *retry.Doer
	baseURL string
}

// compile-time interface assertion
var _ ports.EphemerisProvider = (*Client)(nil)

// NewClient constructs a new ephemeris client.
func NewClient(httpClient *http.Client, baseURL string, opts ...retry.Option) *Client {
	return &Client{
		doer:    retry.New(httpClient, ServiceName, opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type natalChartRequest struct {
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	Day            int     `json:"day"`
	Hour           int     `json:"hour"`
	Minute         int     `json:"minute"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	TimezoneOffset float64 `json:"timezone_offset"`
	HouseSystem    string  `json:"house_system"`
}

// NatalChart posts the birth record and validates every returned position.
func (c *Client) NatalChart(ctx context.Context, birth domain.BirthData) (domain.NatalChart, error) {
	hs := birth.HouseSystem
	if hs == "" {
		hs = domain.HousePlacidus
	}
	body, err := json.Marshal(natalChartRequest{
		Year:           birth.Year,
		Month:          birth.Month,
		Day:            birth.Day,
		Hour:           birth.Hour,
		Minute:         birth.Minute,
		Latitude:       birth.Latitude,
		Longitude:      birth.Longitude,
		TimezoneOffset: birth.TimezoneOffset,
		HouseSystem:    string(hs),
	})
	if err != nil {
		return domain.NatalChart{}, fmt.Errorf("ephemeris adapter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/natal-chart", bytes.NewReader(body))
	if err != nil {
		return domain.NatalChart{}, fmt.Errorf("ephemeris adapter: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return domain.NatalChart{}, fmt.Errorf("ephemeris adapter: natal chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NatalChart{}, fmt.Errorf("ephemeris adapter: natal chart: %w", retry.StatusError(ServiceName, resp))
	}

	var chart domain.NatalChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return domain.NatalChart{}, fmt.Errorf("ephemeris adapter: decode natal chart: %w",
			&ports.UpstreamError{Service: ServiceName, StatusCode: resp.StatusCode, Err: err})
	}
	if err := domain.ValidatePlanets(chart.Planets); err != nil {
		return domain.NatalChart{}, fmt.Errorf("ephemeris adapter: %w", err)
	}
	for i, p := range chart.Planets {
		if p.ZodiacSign == "" {
			chart.Planets[i].ZodiacSign, chart.Planets[i].ZodiacDegree = domain.ZodiacPosition(p.Longitude)
		}
	}
	if chart.Planets == nil {
		chart.Planets = []domain.PlanetPosition{}
	}
	return chart, nil
}

// Health reads the service health document.
func (c *Client) Health(ctx context.Context) (ports.EphemerisHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return ports.EphemerisHealth{}, fmt.Errorf("ephemeris adapter: %w", err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return ports.EphemerisHealth{}, fmt.Errorf("ephemeris adapter: health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.EphemerisHealth{}, fmt.Errorf("ephemeris adapter: health: %w", retry.StatusError(ServiceName, resp))
	}

	var h ports.EphemerisHealth
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return ports.EphemerisHealth{}, fmt.Errorf("ephemeris adapter: decode health: %w", err)
	}
	return h, nil
}
