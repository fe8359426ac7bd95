// Package badgercache keeps ephemeris responses in BadgerDB so repeated
// requests for the same moment and place skip the network.
package badgercache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

// Cache is a read-through ports.EphemerisProvider.
type Cache struct {
	next   ports.EphemerisProvider
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger

	// Moments within recentWindow of now are the live sky; they expire after recentTTL.
	recentWindow time.Duration
	recentTTL    time.Duration
	now          func() time.Time
}

// compile-time interface assertion
var _ ports.EphemerisProvider = (*Cache)(nil)

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}

// Open opens the cache store. An empty path keeps everything in memory.
func Open(path string, logger *zap.Logger) (*badger.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := badger.DefaultOptions(path).
		WithInMemory(path == "").
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger cache: open %q: %w", path, err)
	}
	logger.Info("badger cache opened", zap.String("path", path), zap.Bool("in_memory", path == ""))
	return db, nil
}

// New wraps next with a cache whose entries expire after ttl.
func New(db *badger.DB, next ports.EphemerisProvider, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{next: next, db: db, ttl: ttl, logger: logger, now: time.Now}
}

// WithRecentTTL caches moments close to now for a shorter ttl.
func (c *Cache) WithRecentTTL(window, ttl time.Duration) *Cache {
	c.recentWindow, c.recentTTL = window, ttl
	return c
}

func (c *Cache) ttlFor(b domain.BirthData) time.Duration {
	if c.recentWindow <= 0 || c.recentTTL <= 0 {
		return c.ttl
	}
	age := c.now().Sub(b.LocalTime())
	if age < 0 {
		age = -age
	}
	if age <= c.recentWindow {
		return c.recentTTL
	}
	return c.ttl
}

// ChartKey identifies a request down to the minute.
func ChartKey(b domain.BirthData) []byte {
	hs := b.HouseSystem
	if hs == "" {
		hs = domain.HousePlacidus
	}
	return fmt.Appendf(nil, "natal/%04d-%02d-%02dT%02d:%02d/%g/%.6f/%.6f/%s",
		b.Year, b.Month, b.Day, b.Hour, b.Minute, b.TimezoneOffset, b.Latitude, b.Longitude, hs)
}

// NatalChart serves from the store when possible. Store failures are logged
// and never fail the request.
func (c *Cache) NatalChart(ctx context.Context, birth domain.BirthData) (domain.NatalChart, error) {
	key := ChartKey(birth)

	chart, err := c.get(key)
	switch {
	case err == nil:
		c.logger.Debug("ephemeris cache hit", zap.ByteString("key", key))
		if chart.Planets == nil {
			chart.Planets = []domain.PlanetPosition{}
		}
		return chart, nil
	case !errors.Is(err, badger.ErrKeyNotFound):
		c.logger.Warn("ephemeris cache read failed", zap.ByteString("key", key), zap.Error(err))
	}

	chart, err = c.next.NatalChart(ctx, birth)
	if err != nil {
		return domain.NatalChart{}, err
	}

	if err := c.set(key, chart, c.ttlFor(birth)); err != nil {
		c.logger.Warn("ephemeris cache write failed", zap.ByteString("key", key), zap.Error(err))
	}
	return chart, nil
}

// Health is never cached.
func (c *Cache) Health(ctx context.Context) (ports.EphemerisHealth, error) {
	return c.next.Health(ctx)
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("badger cache: close: %w", err)
	}
	return nil
}

func (c *Cache) get(key []byte) (domain.NatalChart, error) {
	var chart domain.NatalChart
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&chart)
		})
	})
	return chart, err
}

func (c *Cache) set(key []byte, chart domain.NatalChart, ttl time.Duration) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(chart); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, buf.Bytes())
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}
