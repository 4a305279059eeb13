// Package duckdb archives fetch outcomes in an embedded DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/quake-watch/internal/adapter/duckdb/migrate"
	"github.com/couchcryptid/quake-watch/internal/domain"
	_ "github.com/duckdb/duckdb-go/v2"
)

// DefaultRecentLimit is used when RecentFetches is asked for a non-positive limit.
const DefaultRecentLimit = 20

// MaxRecentLimit caps a single RecentFetches page.
const MaxRecentLimit = 500

// Store is the fetch archive. It implements pipeline.Recorder.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewStore opens or creates the archive at dbPath and applies pending
// migrations. An empty dbPath opens an in-memory database.
func NewStore(ctx context.Context, dbPath string, queryTimeout time.Duration) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := migrate.NewRunner(db).Run(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}

	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Store{db: db, queryTimeout: queryTimeout}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// RecordFetch appends one fetch outcome.
func (s *Store) RecordFetch(ctx context.Context, f domain.FetchSummary) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var errText sql.NullString
	if f.Error != "" {
		errText = sql.NullString{String: f.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetches (id, provider, query, outcome, failed, record_count, error, duration_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Provider.String(), f.Query, f.Outcome, f.Failed(), f.RecordCount, errText,
		float64(f.Duration)/float64(time.Millisecond), f.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert fetch %s: %w", f.ID, err)
	}
	return nil
}

// RecentFetches returns up to limit fetches, newest first.
func (s *Store) RecentFetches(ctx context.Context, limit int) ([]domain.FetchSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, query, outcome, record_count, error, duration_ms, completed_at
		FROM fetches
		ORDER BY completed_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent fetches: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FetchSummary, 0, limit)
	for rows.Next() {
		var (
			f          domain.FetchSummary
			provider   string
			errText    sql.NullString
			durationMs float64
		)
		if err := rows.Scan(&f.ID, &provider, &f.Query, &f.Outcome, &f.RecordCount, &errText, &durationMs, &f.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		if f.Provider, err = domain.ParseProviderID(provider); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", f.ID, err)
		}
		f.Error = errText.String
		f.Duration = time.Duration(durationMs * float64(time.Millisecond))
		f.CompletedAt = f.CompletedAt.UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

// ProviderStats summarizes the archive per provider.
func (s *Store) ProviderStats(ctx context.Context) ([]domain.ProviderStats, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, fetches, failures, records, avg_duration_ms, last_completed_at
		FROM provider_stats
		ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("query provider stats: %w", err)
	}
	defer rows.Close()

	out := []domain.ProviderStats{}
	for rows.Next() {
		var st domain.ProviderStats
		if err := rows.Scan(&st.Provider, &st.Fetches, &st.Failures, &st.Records, &st.AvgDurationMs, &st.LastCompletedAt); err != nil {
			return nil, fmt.Errorf("scan provider stats: %w", err)
		}
		st.LastCompletedAt = st.LastCompletedAt.UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}
