package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/clipart-crawler/internal/types"
)

const createSlotTable = `CREATE TABLE IF NOT EXISTS detection_slot (
	id            SMALLINT PRIMARY KEY CHECK (id = 1),
	matched       BOOLEAN NOT NULL,
	endpoint_url  TEXT,
	schema_kind   TEXT,
	source_origin TEXT NOT NULL,
	strategy      TEXT,
	detected_at   TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres keeps the slot in a single-row table so a server and its workers
// share one bridge.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool, verifies it and ensures the slot table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createSlotTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create detection_slot table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Put implements Store
func (p *Postgres) Put(ctx context.Context, result types.DetectionResult) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO detection_slot (id, matched, endpoint_url, schema_kind, source_origin, strategy, detected_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   matched = $1, endpoint_url = $2, schema_kind = $3, source_origin = $4,
		   strategy = $5, detected_at = $6, updated_at = NOW()`,
		result.Matched, nullIfEmpty(result.EndpointURL), nullIfEmpty(string(result.SchemaKind)),
		result.SourceOrigin, nullIfEmpty(result.Strategy), result.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store detection result: %w", err)
	}
	return nil
}

// Get implements Store
func (p *Postgres) Get(ctx context.Context) (types.DetectionResult, bool, error) {
	var (
		result              types.DetectionResult
		endpoint, kind, via *string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT matched, endpoint_url, schema_kind, source_origin, strategy, detected_at
		 FROM detection_slot WHERE id = 1`,
	).Scan(&result.Matched, &endpoint, &kind, &result.SourceOrigin, &via, &result.DetectedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.DetectionResult{}, false, nil
	}
	if err != nil {
		return types.DetectionResult{}, false, fmt.Errorf("failed to load detection result: %w", err)
	}

	result.EndpointURL = derefString(endpoint)
	result.SchemaKind = types.SchemaKind(derefString(kind))
	result.Strategy = derefString(via)
	return result, true, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
