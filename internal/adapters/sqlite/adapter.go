// Package sqlite provides a SQLite-backed implementation of the repository ports.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

const birthLayout = "2006-01-02T15:04:05Z"

// Adapter implements the chart and generation repository ports for SQLite
type Adapter struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ ports.ChartRepository      = (*Adapter)(nil)
	_ ports.GenerationRepository = (*Adapter)(nil)
)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db, now: time.Now}

	// Auto-migrate on startup for local dev
	if err := adapter.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Ping reports whether the database is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// CreateChart assigns an ID and creation time and stores the chart.
func (a *Adapter) CreateChart(ctx context.Context, c domain.SavedChart) (domain.SavedChart, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = a.now().UTC()
	}

	query := `
		INSERT INTO natal_charts (
			id, user_id, chart_name, birth_datetime, birth_latitude, birth_longitude,
			birth_location_name, timezone_offset, house_system, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := a.db.ExecContext(ctx, query,
		c.ID,
		c.UserID,
		c.ChartName,
		c.BirthDatetime.UTC().Format(birthLayout),
		c.BirthLatitude,
		c.BirthLongitude,
		c.BirthLocationName,
		c.TimezoneOffset,
		string(c.HouseSystem),
		c.CreatedAt.UnixMicro(),
	); err != nil {
		return domain.SavedChart{}, fmt.Errorf("failed to save chart: %w", err)
	}
	return c, nil
}

const chartColumns = `id, user_id, chart_name, birth_datetime, birth_latitude, birth_longitude,
	IFNULL(birth_location_name, ''), timezone_offset, IFNULL(house_system, ''), created_at`

// ListCharts returns the user's charts, newest first.
func (a *Adapter) ListCharts(ctx context.Context, userID string) ([]domain.SavedChart, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+chartColumns+`
		FROM natal_charts
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charts: %w", err)
	}
	defer rows.Close()

	charts := []domain.SavedChart{}
	for rows.Next() {
		c, err := scanChart(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chart: %w", err)
		}
		charts = append(charts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate charts: %w", err)
	}
	return charts, nil
}

// GetChart loads one chart owned by userID.
func (a *Adapter) GetChart(ctx context.Context, userID, id string) (domain.SavedChart, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT `+chartColumns+`
		FROM natal_charts
		WHERE id = ? AND user_id = ?
	`, id, userID)
	c, err := scanChart(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SavedChart{}, domain.ErrNotFound
		}
		return domain.SavedChart{}, fmt.Errorf("failed to load chart: %w", err)
	}
	return c, nil
}

// DeleteChart removes one chart owned by userID.
func (a *Adapter) DeleteChart(ctx context.Context, userID, id string) error {
	res, err := a.db.ExecContext(ctx, "DELETE FROM natal_charts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete chart: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChart(s scanner) (domain.SavedChart, error) {
	var (
		c         domain.SavedChart
		birth     string
		hs        string
		createdAt int64
	)
	if err := s.Scan(
		&c.ID,
		&c.UserID,
		&c.ChartName,
		&birth,
		&c.BirthLatitude,
		&c.BirthLongitude,
		&c.BirthLocationName,
		&c.TimezoneOffset,
		&hs,
		&createdAt,
	); err != nil {
		return domain.SavedChart{}, err
	}
	t, err := time.Parse(birthLayout, birth)
	if err != nil {
		return domain.SavedChart{}, fmt.Errorf("birth_datetime %q: %w", birth, err)
	}
	c.BirthDatetime = t
	c.HouseSystem = domain.HouseSystem(hs)
	if c.HouseSystem == "" {
		c.HouseSystem = domain.HousePlacidus
	}
	c.CreatedAt = time.UnixMicro(createdAt).UTC()
	return c, nil
}

// CreateGeneration stores a new generation record.
func (a *Adapter) CreateGeneration(ctx context.Context, g domain.GeneratedAudio) error {
	query := `
		INSERT INTO generations (
			id, user_id, provider_id, status, prompt, audio_url, video_url, failure_reason,
			duration, movements, music_key, tempo, measured_duration, loudness,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := a.db.ExecContext(ctx, query,
		g.ID,
		g.UserID,
		g.ProviderID,
		string(g.Status),
		g.Prompt,
		g.AudioURL,
		g.VideoURL,
		g.FailureReason,
		g.Metadata.Duration,
		g.Metadata.Movements,
		g.Metadata.Key,
		g.Metadata.Tempo,
		g.Metadata.MeasuredDuration,
		g.Metadata.Loudness,
		g.CreatedAt.UnixMicro(),
		g.UpdatedAt.UnixMicro(),
	); err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}
	return nil
}

const generationColumns = `id, IFNULL(user_id, ''), IFNULL(provider_id, ''), status, prompt,
	IFNULL(audio_url, ''), IFNULL(video_url, ''), IFNULL(failure_reason, ''),
	duration, movements, music_key, tempo,
	IFNULL(measured_duration, 0), IFNULL(loudness, 0), created_at, updated_at`

// GetGeneration loads a generation by ID.
func (a *Adapter) GetGeneration(ctx context.Context, id string) (domain.GeneratedAudio, error) {
	row := a.db.QueryRowContext(ctx, "SELECT "+generationColumns+" FROM generations WHERE id = ?", id)
	g, err := scanGeneration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.GeneratedAudio{}, domain.ErrNotFound
		}
		return domain.GeneratedAudio{}, fmt.Errorf("failed to load generation: %w", err)
	}
	return g, nil
}

// ListGenerations returns the user's history, newest first. A non-positive
// limit returns everything.
func (a *Adapter) ListGenerations(ctx context.Context, userID string, limit int) ([]domain.GeneratedAudio, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+generationColumns+`
		FROM generations
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	out := []domain.GeneratedAudio{}
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generations: %w", err)
	}
	return out, nil
}

// UpdateGeneration writes the mutable fields of a generation.
func (a *Adapter) UpdateGeneration(ctx context.Context, g domain.GeneratedAudio) error {
	query := `
		UPDATE generations
		SET
			provider_id = ?,
			status = ?,
			audio_url = ?,
			video_url = ?,
			failure_reason = ?,
			measured_duration = ?,
			loudness = ?,
			updated_at = ?
		WHERE id = ?
	`
	res, err := a.db.ExecContext(ctx, query,
		g.ProviderID,
		string(g.Status),
		g.AudioURL,
		g.VideoURL,
		g.FailureReason,
		g.Metadata.MeasuredDuration,
		g.Metadata.Loudness,
		g.UpdatedAt.UnixMicro(),
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update generation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update generation: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanGeneration(s scanner) (domain.GeneratedAudio, error) {
	var (
		g                    domain.GeneratedAudio
		status               string
		createdAt, updatedAt int64
	)
	if err := s.Scan(
		&g.ID,
		&g.UserID,
		&g.ProviderID,
		&status,
		&g.Prompt,
		&g.AudioURL,
		&g.VideoURL,
		&g.FailureReason,
		&g.Metadata.Duration,
		&g.Metadata.Movements,
		&g.Metadata.Key,
		&g.Metadata.Tempo,
		&g.Metadata.MeasuredDuration,
		&g.Metadata.Loudness,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.GeneratedAudio{}, err
	}
	g.Status = domain.GenerationStatus(status)
	g.CreatedAt = time.UnixMicro(createdAt).UTC()
	g.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	return g, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS natal_charts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		chart_name TEXT NOT NULL,
		birth_datetime TEXT NOT NULL,
		birth_latitude REAL NOT NULL,
		birth_longitude REAL NOT NULL,
		birth_location_name TEXT,
		timezone_offset INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_natal_charts_user ON natal_charts (user_id, created_at);

	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		provider_id TEXT,
		status TEXT NOT NULL,
		prompt TEXT NOT NULL,
		audio_url TEXT,
		video_url TEXT,
		failure_reason TEXT,
		duration INTEGER NOT NULL DEFAULT 0,
		movements INTEGER NOT NULL DEFAULT 0,
		music_key TEXT NOT NULL DEFAULT '',
		tempo INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_generations_user ON generations (user_id, created_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	for _, stmt := range []string{
		"ALTER TABLE natal_charts ADD COLUMN house_system TEXT",
		"ALTER TABLE generations ADD COLUMN measured_duration REAL",
		"ALTER TABLE generations ADD COLUMN loudness REAL",
	} {
		if _, err := a.db.Exec(stmt); err != nil {
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
