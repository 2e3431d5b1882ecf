// Package store persists ordered, monotonically versioned snapshots of
// pattern code. Two implementations satisfy the same contract: an in-memory
// store and a SQLite-backed store for durable use.
package store

import "errors"

// ErrEmptyPatternID is returned by SaveSnapshot for an empty pattern ID.
// This is the one loudly validated precondition; everything else degrades
// to nil/zero results.
var ErrEmptyPatternID = errors.New("pattern id must not be empty")

// Snapshot is one immutable, versioned revision of a pattern's code.
// For a fixed pattern ID, versions form the dense sequence 1, 2, 3, ...
// in creation order.
type Snapshot struct {
	PatternID string            `json:"patternId"`
	Version   int               `json:"version"`
	Code      string            `json:"code"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Digest    string            `json:"digest"`    // BLAKE3 hex of Code
	CreatedAt int64             `json:"createdAt"` // epoch ms
}

// Store is the snapshot persistence contract. Saving is the only write;
// rollback is a read and never creates a snapshot on its own.
type Store interface {
	// SaveSnapshot appends a new snapshot with version previousLatest+1
	// (1 if none exists). metadata may be nil; code may be empty.
	SaveSnapshot(patternID, code string, metadata map[string]string) (*Snapshot, error)

	// History returns all snapshots for the pattern, newest-first.
	History(patternID string) ([]*Snapshot, error)

	// Version returns the exact snapshot, or nil if the pattern or
	// version is unknown.
	Version(patternID string, version int) (*Snapshot, error)

	// LatestVersion returns the highest existing version, or 0.
	LatestVersion(patternID string) (int, error)

	// Rollback returns the code at the given version. ok is false when
	// the version does not exist. Making the rolled-back code the new
	// head requires an explicit SaveSnapshot by the caller.
	Rollback(patternID string, version int) (code string, ok bool, err error)
}
