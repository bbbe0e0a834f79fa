package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// statsRepo implements the durable counter store on sqlite
type statsRepo struct {
	db *sql.DB
}

// NewStatsRepo creates a new durable counter store
func NewStatsRepo(dbPath string) (repo.StatsRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS stats_counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats_counters table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS stats_sources (
			source TEXT NOT NULL,
			name TEXT NOT NULL,
			value INTEGER NOT NULL,
			PRIMARY KEY (source, name)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats_sources table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS stats_meta (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats_meta table: %w", err)
	}

	return &statsRepo{db: db}, nil
}

// Load reads the persisted counter set. Returns nil when nothing has been
// persisted yet.
func (r *statsRepo) Load(ctx context.Context) (*domain.StatsSnapshot, error) {
	var startedAt int64
	err := r.db.QueryRowContext(ctx, `SELECT value FROM stats_meta WHERE key = 'started_at'`).Scan(&startedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stats meta: %w", err)
	}

	snap := &domain.StatsSnapshot{
		StartedAt: time.Unix(startedAt, 0),
		Counters:  make(map[domain.Counter]int64),
		BySource:  make(map[string]map[domain.Counter]int64),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT name, value FROM stats_counters`)
	if err != nil {
		return nil, fmt.Errorf("failed to query counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		snap.Counters[domain.Counter(name)] = value
	}

	srcRows, err := r.db.QueryContext(ctx, `SELECT source, name, value FROM stats_sources`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source counters: %w", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var source, name string
		var value int64
		if err := srcRows.Scan(&source, &name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan source counter: %w", err)
		}
		bySource, ok := snap.BySource[source]
		if !ok {
			bySource = make(map[domain.Counter]int64)
			snap.BySource[source] = bySource
		}
		bySource[domain.Counter(name)] = value
	}

	return snap, nil
}

// Save writes the full counter set. The set is small, so it is rewritten
// wholesale inside one transaction.
func (r *statsRepo) Save(ctx context.Context, snap *domain.StatsSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stats tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stats_counters`); err != nil {
		return fmt.Errorf("failed to clear counters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stats_sources`); err != nil {
		return fmt.Errorf("failed to clear source counters: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO stats_meta (key, value) VALUES ('started_at', ?)
	`, snap.StartedAt.Unix()); err != nil {
		return fmt.Errorf("failed to save stats meta: %w", err)
	}

	for name, value := range snap.Counters {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stats_counters (name, value) VALUES (?, ?)
		`, string(name), value); err != nil {
			return fmt.Errorf("failed to save counter %s: %w", name, err)
		}
	}
	for source, counters := range snap.BySource {
		for name, value := range counters {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO stats_sources (source, name, value) VALUES (?, ?, ?)
			`, source, string(name), value); err != nil {
				return fmt.Errorf("failed to save source counter %s/%s: %w", source, name, err)
			}
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (r *statsRepo) Close() error {
	return r.db.Close()
}
