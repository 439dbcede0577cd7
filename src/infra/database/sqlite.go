package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore is a SQLite implementation of the StateStore interface.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens the state database at path, creating it and its
// schema when missing.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS queue_tracks (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			media_ref TEXT NOT NULL,
			donated_by TEXT,
			amount REAL,
			currency TEXT,
			local_path TEXT,
			status TEXT NOT NULL,
			enqueued_at TEXT,
			error TEXT
		);

		CREATE TABLE IF NOT EXISTS queue_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			current_index INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS markers (
			source_id TEXT PRIMARY KEY,
			marker TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS credentials (
			source_id TEXT PRIMARY KEY,
			token TEXT NOT NULL
		);
	`)
	return err
}

// Save atomically replaces the stored state with the given snapshot.
func (s *SqliteStore) Save(ctx context.Context, state *donation.PersistedState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &donation.PersistenceError{Op: "save", Err: err}
	}
	defer tx.Rollback()

	for _, table := range []string{"queue_tracks", "markers", "credentials"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return &donation.PersistenceError{Op: "save", Err: err}
		}
	}

	for i, rec := range state.Tracks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO queue_tracks (position, id, source_id, external_id, title, media_ref,
				donated_by, amount, currency, local_path, status, enqueued_at, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, i, rec.ID, rec.SourceID, rec.ExternalID, rec.Title, rec.MediaRef,
			rec.DonatedBy, rec.Amount, rec.Currency, rec.LocalPath, string(rec.Status),
			rec.EnqueuedAt.Format(time.RFC3339Nano), rec.Error)
		if err != nil {
			return &donation.PersistenceError{Op: "save", Err: err}
		}
	}

	for sourceID, marker := range state.Markers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO markers (source_id, marker) VALUES (?, ?)
		`, sourceID, string(marker))
		if err != nil {
			return &donation.PersistenceError{Op: "save", Err: err}
		}
	}

	for sourceID, token := range state.Credentials {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (source_id, token) VALUES (?, ?)
		`, sourceID, token)
		if err != nil {
			return &donation.PersistenceError{Op: "save", Err: err}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO queue_state (id, current_index, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET current_index = excluded.current_index, saved_at = excluded.saved_at
	`, state.CurrentIndex, state.SavedAt.Format(time.RFC3339Nano))
	if err != nil {
		return &donation.PersistenceError{Op: "save", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &donation.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Load reads the stored state. Returns (nil, nil) when nothing has been
// saved yet.
func (s *SqliteStore) Load(ctx context.Context) (*donation.PersistedState, error) {
	state := &donation.PersistedState{
		Markers:     make(map[string]donation.Marker),
		Credentials: make(map[string]string),
	}

	var savedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT current_index, saved_at FROM queue_state WHERE id = 1
	`).Scan(&state.CurrentIndex, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &donation.PersistenceError{Op: "load", Err: err}
	}
	state.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, external_id, title, media_ref, donated_by, amount,
			currency, local_path, status, enqueued_at, error
		FROM queue_tracks ORDER BY position
	`)
	if err != nil {
		return nil, &donation.PersistenceError{Op: "load", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var rec donation.TrackRecord
		var status, enqueuedAt string
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.ExternalID, &rec.Title, &rec.MediaRef,
			&rec.DonatedBy, &rec.Amount, &rec.Currency, &rec.LocalPath, &status, &enqueuedAt, &rec.Error); err != nil {
			return nil, &donation.PersistenceError{Op: "load", Err: err}
		}
		rec.Status = donation.TrackStatus(status)
		rec.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, enqueuedAt)
		rec.Position = len(state.Tracks)
		state.Tracks = append(state.Tracks, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &donation.PersistenceError{Op: "load", Err: err}
	}

	if err := s.loadKeyValues(ctx, "SELECT source_id, marker FROM markers", func(k, v string) {
		state.Markers[k] = donation.Marker(v)
	}); err != nil {
		return nil, err
	}
	if err := s.loadKeyValues(ctx, "SELECT source_id, token FROM credentials", func(k, v string) {
		state.Credentials[k] = v
	}); err != nil {
		return nil, err
	}

	return state, nil
}

func (s *SqliteStore) loadKeyValues(ctx context.Context, query string, put func(k, v string)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return &donation.PersistenceError{Op: "load", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return &donation.PersistenceError{Op: "load", Err: err}
		}
		put(k, v)
	}
	if err := rows.Err(); err != nil {
		return &donation.PersistenceError{Op: "load", Err: err}
	}
	return nil
}

// Close closes the underlying database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}
