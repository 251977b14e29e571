package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"zonescout/internal/research/models"
	"zonescout/pkg/platform/sentinel"
)

// Schema creates the run archive table.
const Schema = `
CREATE TABLE IF NOT EXISTS research_runs (
	id           TEXT PRIMARY KEY,
	address      TEXT NOT NULL,
	street_name  TEXT NOT NULL,
	house_number TEXT NOT NULL,
	narrative    TEXT NOT NULL,
	stop_reason  TEXT NOT NULL,
	iterations   INTEGER NOT NULL,
	overlays     TEXT[] NOT NULL DEFAULT '{}',
	warnings     TEXT[] NOT NULL DEFAULT '{}',
	record       JSONB NOT NULL,
	sources      JSONB NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS research_runs_address_idx ON research_runs (address, started_at DESC);
`

// PostgresStore archives finished runs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed run archive.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the archive table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure research_runs schema: %w", err)
	}
	return nil
}

// Save upserts a finished run.
func (s *PostgresStore) Save(ctx context.Context, result *models.Result) error {
	if result == nil {
		return errors.New("result is required")
	}
	recordJSON, err := json.Marshal(result.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	sources := result.Sources
	if sources == nil {
		sources = []models.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	query := `
		INSERT INTO research_runs (
			id, address, street_name, house_number, narrative, stop_reason,
			iterations, overlays, warnings, record, sources, started_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			narrative = EXCLUDED.narrative,
			stop_reason = EXCLUDED.stop_reason,
			iterations = EXCLUDED.iterations,
			overlays = EXCLUDED.overlays,
			warnings = EXCLUDED.warnings,
			record = EXCLUDED.record,
			sources = EXCLUDED.sources,
			duration_ms = EXCLUDED.duration_ms
	`
	_, err = s.db.ExecContext(ctx, query,
		result.RunID,
		result.Address,
		result.StreetName,
		result.HouseNumber,
		result.Narrative,
		string(result.StopReason),
		result.Iterations,
		pq.Array(nonNil(result.Record.Overlays)),
		pq.Array(nonNil(result.Warnings)),
		recordJSON,
		sourcesJSON,
		result.StartedAt,
		result.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("save research run: %w", err)
	}
	return nil
}

// FindByID loads an archived run. Evidence is not archived.
func (s *PostgresStore) FindByID(ctx context.Context, runID string) (*models.Result, error) {
	query := `
		SELECT id, address, street_name, house_number, narrative, stop_reason,
			iterations, warnings, record, sources, started_at, duration_ms
		FROM research_runs
		WHERE id = $1
	`
	var (
		result      models.Result
		stopReason  string
		warnings    []string
		recordJSON  []byte
		sourcesJSON []byte
		durationMS  int64
	)
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&result.RunID,
		&result.Address,
		&result.StreetName,
		&result.HouseNumber,
		&result.Narrative,
		&stopReason,
		&result.Iterations,
		pq.Array(&warnings),
		&recordJSON,
		&sourcesJSON,
		&result.StartedAt,
		&durationMS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find research run: %w", err)
	}
	if err := json.Unmarshal(recordJSON, &result.Record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	if err := json.Unmarshal(sourcesJSON, &result.Sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	result.StopReason = models.StopReason(stopReason)
	result.Warnings = nonNil(warnings)
	result.Duration = time.Duration(durationMS) * time.Millisecond
	return &result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
