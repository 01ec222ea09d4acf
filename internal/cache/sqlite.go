package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gold-rate/internal/logger"
	"gold-rate/internal/rates"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the default on-disk cache.
type SQLiteStore struct {
	sql *sql.DB
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &SQLiteStore{sql: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.sql.Close()
}

func (s *SQLiteStore) migrate() error {
	version := 0
	// Missing table on a fresh file leaves version at 0.
	s.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS payload_cache (
				cache_key TEXT PRIMARY KEY,
				location  TEXT NOT NULL,
				body      TEXT NOT NULL,
				stored_at TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS meta (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}
	return nil
}

// Get returns the cached payload for location, or nil on a miss.
func (s *SQLiteStore) Get(ctx context.Context, location string) (*rates.PricePayload, error) {
	var body string
	err := s.sql.QueryRowContext(ctx,
		"SELECT body FROM payload_cache WHERE cache_key = ?", Key(location),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", location, err)
	}
	p, err := rates.Decode([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode cache %s: %w", location, err)
	}
	return p, nil
}

// Put replaces the payload stored for p.Location.
func (s *SQLiteStore) Put(ctx context.Context, p *rates.PricePayload) error {
	body, err := rates.Encode(p)
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", p.Location, err)
	}
	_, err = s.sql.ExecContext(ctx,
		"INSERT OR REPLACE INTO payload_cache (cache_key, location, body, stored_at) VALUES (?,?,?,?)",
		Key(p.Location), p.Location, string(body), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write cache %s: %w", p.Location, err)
	}
	return nil
}

// Meta reads a metadata value; a missing key yields "".
func (s *SQLiteStore) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.sql.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetMeta writes a metadata value.
func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.sql.ExecContext(ctx, "INSERT OR REPLACE INTO meta (key, value) VALUES (?,?)", key, value)
	return err
}

// Locations lists cached locations, most recently stored first.
func (s *SQLiteStore) Locations(ctx context.Context) ([]string, error) {
	rows, err := s.sql.QueryContext(ctx, "SELECT location FROM payload_cache ORDER BY stored_at DESC, location")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			continue
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Cleanup removes payloads not refreshed within maxAge.
func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339)
	res, err := s.sql.ExecContext(ctx, "DELETE FROM payload_cache WHERE stored_at < ?", cutoff)
	if err != nil {
		logger.Warn("DB", fmt.Sprintf("Cleanup: %v", err))
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.Info("DB", fmt.Sprintf("Cleanup: removed %d stale payloads", n))
	}
}
