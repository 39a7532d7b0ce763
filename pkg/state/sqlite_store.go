package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots in a SQLite database keyed by
// Ref.Identifier. Safe for concurrent use.
type SQLiteStore[T any] struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenSQLiteStore opens the database at path and creates the snapshot table
// when missing. ":memory:" selects a private in-memory database.
func OpenSQLiteStore[T any](ctx context.Context, path string) (*SQLiteStore[T], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: ping database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("state: enable WAL mode: %w", err)
		}
	}

	s := &SQLiteStore[T]{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore[T]) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS variable_snapshots (
		ref TEXT PRIMARY KEY,
		snapshot TEXT NOT NULL,
		snapshot_id TEXT NOT NULL DEFAULT '',
		etag TEXT NOT NULL DEFAULT '',
		extra TEXT,
		updated_at TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("state: create tables: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *SQLiteStore[T]) Load(ctx context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		payload   string
		extra     sql.NullString
		updatedAt string
		meta      Meta
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot, snapshot_id, etag, extra, updated_at FROM variable_snapshots WHERE ref = ?`, key)
	if err := row.Scan(&payload, &meta.SnapshotID, &meta.ETag, &extra, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, Meta{}, false, nil
		}
		return zero, Meta{}, false, fmt.Errorf("state: load %s: %w", key, err)
	}

	var snapshot T
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return zero, Meta{}, false, fmt.Errorf("state: decode %s meta: %w", key, err)
		}
	}
	if updatedAt != "" {
		parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return zero, Meta{}, false, fmt.Errorf("state: decode %s updated_at: %w", key, err)
		}
		meta.UpdatedAt = parsed
	}
	return snapshot, meta, true, nil
}

func (s *SQLiteStore[T]) Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", key, err)
	}
	var extra sql.NullString
	if len(meta.Extra) > 0 {
		encoded, err := json.Marshal(meta.Extra)
		if err != nil {
			return Meta{}, fmt.Errorf("state: encode %s meta: %w", key, err)
		}
		extra = sql.NullString{String: string(encoded), Valid: true}
	}
	updatedAt := ""
	if !meta.UpdatedAt.IsZero() {
		updatedAt = meta.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO variable_snapshots (ref, snapshot, snapshot_id, etag, extra, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			snapshot = excluded.snapshot,
			snapshot_id = excluded.snapshot_id,
			etag = excluded.etag,
			extra = excluded.extra,
			updated_at = excluded.updated_at`,
		key, string(payload), meta.SnapshotID, meta.ETag, extra, updatedAt)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", key, err)
	}
	return cloneMeta(meta), nil
}
