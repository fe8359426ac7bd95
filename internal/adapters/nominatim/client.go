// Package nominatim resolves place names through an OpenStreetMap Nominatim
// endpoint and keeps recent answers in memory.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/adapters/retry"
	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

const (
	ServiceName      = "nominatim"
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "natal-symphony/1.0"
	resultLimit      = 5
)

// Client searches places. Nominatim's usage policy requires a descriptive User-Agent.
type Client struct {
	doer      *retry.Doer
	baseURL   string
	userAgent string
	cache     *ristretto.Cache[string, []domain.Location]
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// compile-time interface assertion
var _ ports.LocationSearcher = (*Client)(nil)

// Config holds the client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	// CacheEntries bounds the number of cached queries; zero disables caching.
	CacheEntries int64
	CacheTTL     time.Duration
}

// NewClient constructs a new Nominatim client.
func NewClient(httpClient *http.Client, cfg Config, logger *zap.Logger, opts ...retry.Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	c := &Client{
		doer:      retry.New(httpClient, ServiceName, append([]retry.Option{retry.WithLogger(logger)}, opts...)...),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		cacheTTL:  cfg.CacheTTL,
		logger:    logger,
	}

	if cfg.CacheEntries > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, []domain.Location]{
			NumCounters:        cfg.CacheEntries * 10,
			MaxCost:            cfg.CacheEntries,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("nominatim adapter: create cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

type place struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	PlaceID     int64  `json:"place_id"`
}

// SearchLocations returns up to five suggestions. Queries shorter than
// domain.MinLocationQuery characters return an empty list without a request.
func (c *Client) SearchLocations(ctx context.Context, query string) ([]domain.Location, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < domain.MinLocationQuery {
		return []domain.Location{}, nil
	}

	key := strings.ToLower(query)
	if c.cache != nil {
		if hit, ok := c.cache.Get(key); ok {
			return hit, nil
		}
	}

	u := fmt.Sprintf("%s/search?format=json&q=%s&limit=%d", c.baseURL, url.QueryEscape(query), resultLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("nominatim adapter: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim adapter: search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim adapter: search: %w", retry.StatusError(ServiceName, resp))
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("nominatim adapter: decode: %w",
			&ports.UpstreamError{Service: ServiceName, StatusCode: resp.StatusCode, Err: err})
	}

	out := make([]domain.Location, 0, len(places))
	for _, p := range places {
		loc, err := toLocation(p)
		if err != nil {
			c.logger.Warn("skipping unparsable place", zap.Int64("place_id", p.PlaceID), zap.Error(err))
			continue
		}
		out = append(out, loc)
	}

	if c.cache != nil {
		c.cache.SetWithTTL(key, out, 1, c.cacheTTL)
	}
	return out, nil
}

// Close releases the cache.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

func toLocation(p place) (domain.Location, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.Location{}, fmt.Errorf("lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.Location{}, fmt.Errorf("lon %q: %w", p.Lon, err)
	}
	return domain.Location{
		DisplayName:    p.DisplayName,
		Latitude:       lat,
		Longitude:      lon,
		PlaceID:        p.PlaceID,
		TimezoneOffset: domain.EstimateTimezoneOffset(lon),
	}, nil
}
