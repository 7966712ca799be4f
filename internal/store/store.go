package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"symsync/internal/config"
	"symsync/internal/links"
)

// Store manages link configuration persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the configuration database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database at an explicit location; tests use it to
// avoid building a full configuration.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// SaveConfig inserts or replaces the record for one configuration.
func (s *Store) SaveConfig(ctx context.Context, rec links.Record) error {
	if rec.ID == "" {
		return errors.New("record id is empty")
	}
	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	logsJSON, err := json.Marshal(rec.Logs)
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO link_configs (
            id, name, target_path, sources_json, is_active,
            rescan_interval_seconds, logs_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            target_path = excluded.target_path,
            sources_json = excluded.sources_json,
            is_active = excluded.is_active,
            rescan_interval_seconds = excluded.rescan_interval_seconds,
            logs_json = excluded.logs_json,
            updated_at = excluded.updated_at`,
		rec.ID,
		rec.Name,
		nullableString(rec.TargetPath),
		string(sourcesJSON),
		boolToInt(rec.IsActive),
		rec.RescanIntervalSeconds,
		string(logsJSON),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("save configuration %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteConfig removes the record for one configuration. Deleting an
// unknown id is not an error.
func (s *Store) DeleteConfig(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM link_configs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete configuration %s: %w", id, err)
	}
	return nil
}

// LoadConfigs returns every stored record ordered by creation time.
func (s *Store) LoadConfigs(ctx context.Context) ([]links.Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, target_path, sources_json, is_active,
                rescan_interval_seconds, logs_json
         FROM link_configs ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query configurations: %w", err)
	}
	defer rows.Close()

	var records []links.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan configuration: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configurations: %w", err)
	}
	return records, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (links.Record, error) {
	var (
		id          string
		name        string
		targetPath  sql.NullString
		sourcesJSON string
		isActive    int64
		interval    int64
		logsJSON    string
	)
	if err := scanner.Scan(&id, &name, &targetPath, &sourcesJSON, &isActive, &interval, &logsJSON); err != nil {
		return links.Record{}, err
	}

	rec := links.Record{
		ID:                    id,
		Name:                  name,
		TargetPath:            targetPath.String,
		IsActive:              isActive != 0,
		RescanIntervalSeconds: int(interval),
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &rec.Sources); err != nil {
		return links.Record{}, fmt.Errorf("decode sources: %w", err)
	}
	if err := json.Unmarshal([]byte(logsJSON), &rec.Logs); err != nil {
		return links.Record{}, fmt.Errorf("decode logs: %w", err)
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
