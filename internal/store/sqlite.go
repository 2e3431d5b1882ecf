package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"patvc/internal/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	pattern_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	code TEXT NOT NULL,
	metadata TEXT NOT NULL,
	digest TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (pattern_id, version)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_pattern ON snapshots(pattern_id);
`

// SQLiteStore is a durable Store backed by a SQLite database. Version
// assignment runs inside a transaction, so concurrent writers on the same
// pattern cannot observe the same latest version.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the snapshot database at the given path.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot appends a new snapshot for the pattern.
func (s *SQLiteStore) SaveSnapshot(patternID, code string, metadata map[string]string) (*Snapshot, error) {
	if patternID == "" {
		return nil, ErrEmptyPatternID
	}

	metaJSON, err := json.Marshal(copyMetadata(metadata))
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var latest int
	if err := tx.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM snapshots WHERE pattern_id = ?
	`, patternID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("querying latest version: %w", err)
	}

	snap := &Snapshot{
		PatternID: patternID,
		Version:   latest + 1,
		Code:      code,
		Metadata:  copyMetadata(metadata),
		Digest:    util.Blake3HashHex([]byte(code)),
		CreatedAt: util.NowMs(),
	}

	if _, err := tx.Exec(`
		INSERT INTO snapshots (pattern_id, version, code, metadata, digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.PatternID, snap.Version, snap.Code, string(metaJSON), snap.Digest, snap.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return snap, nil
}

// History returns the pattern's snapshots, newest-first.
func (s *SQLiteStore) History(patternID string) ([]*Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT version, code, metadata, digest, created_at
		FROM snapshots WHERE pattern_id = ? ORDER BY version DESC
	`, patternID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var history []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows, patternID)
		if err != nil {
			return nil, err
		}
		history = append(history, snap)
	}

	return history, rows.Err()
}

// Version returns the exact snapshot, or nil when unknown.
func (s *SQLiteStore) Version(patternID string, version int) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT version, code, metadata, digest, created_at
		FROM snapshots WHERE pattern_id = ? AND version = ?
	`, patternID, version)

	snap, err := scanSnapshot(row, patternID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// LatestVersion returns the highest version, or 0 for an unknown pattern.
func (s *SQLiteStore) LatestVersion(patternID string) (int, error) {
	var latest int
	if err := s.db.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM snapshots WHERE pattern_id = ?
	`, patternID).Scan(&latest); err != nil {
		return 0, fmt.Errorf("querying latest version: %w", err)
	}
	return latest, nil
}

// Rollback returns the code at the given version without writing anything.
func (s *SQLiteStore) Rollback(patternID string, version int) (string, bool, error) {
	var code string
	err := s.db.QueryRow(`
		SELECT code FROM snapshots WHERE pattern_id = ? AND version = ?
	`, patternID, version).Scan(&code)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying snapshot: %w", err)
	}
	return code, true, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner, patternID string) (*Snapshot, error) {
	var snap Snapshot
	var metaJSON string

	if err := row.Scan(&snap.Version, &snap.Code, &metaJSON, &snap.Digest, &snap.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}
	snap.PatternID = patternID

	var metadata map[string]string
	if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	snap.Metadata = metadata

	return &snap, nil
}
