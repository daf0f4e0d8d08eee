package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

// Store keeps finished crawl runs in Postgres. The full result document is
// stored as JSONB next to a few denormalized columns for listing.
type Store struct {
	pool *pgxpool.Pool
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id             UUID PRIMARY KEY,
	query          TEXT NOT NULL,
	scrape_time    TIMESTAMPTZ NOT NULL,
	num_suppliers  INT NOT NULL,
	num_products   INT NOT NULL,
	result         JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_scrape_runs_query ON scrape_runs (query, scrape_time DESC);
`

// Migrate creates the runs table. Safe to call on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RunRecord is one persisted crawl run. Result is only populated on point
// lookups, not on listings.
type RunRecord struct {
	ID           uuid.UUID            `json:"id"`
	Query        string               `json:"query"`
	ScrapeTime   time.Time            `json:"scrape_time"`
	NumSuppliers int                  `json:"num_suppliers"`
	NumProducts  int                  `json:"num_products"`
	Result       *models.ScrapeResult `json:"result,omitempty"`
}

// SaveRun persists a finished run and returns its id.
func (s *Store) SaveRun(ctx context.Context, result *models.ScrapeResult) (uuid.UUID, error) {
	doc, err := json.Marshal(result)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	numProducts := 0
	for _, seller := range result.Suppliers {
		numProducts += len(seller.Products)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scrape_runs (id, query, scrape_time, num_suppliers, num_products, result)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, result.Query, result.ScrapeTime, len(result.Suppliers), numProducts, doc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first, without result bodies.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, query, scrape_time, num_suppliers, num_products
		FROM scrape_runs
		ORDER BY scrape_time DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Query, &r.ScrapeTime, &r.NumSuppliers, &r.NumProducts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads one run including the full result document.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	var r RunRecord
	var doc []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, query, scrape_time, num_suppliers, num_products, result
		FROM scrape_runs
		WHERE id = $1`, id).
		Scan(&r.ID, &r.Query, &r.ScrapeTime, &r.NumSuppliers, &r.NumProducts, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	var result models.ScrapeResult
	if err := json.Unmarshal(doc, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	r.Result = &result
	return &r, nil
}
