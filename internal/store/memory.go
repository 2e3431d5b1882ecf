package store

import (
	"sync"

	"patvc/internal/util"
)

// MemoryStore is an in-memory Store. The mutex serializes version
// assignment, so concurrent SaveSnapshot calls on the same pattern cannot
// produce gaps or duplicates.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[string][]*Snapshot // ascending by version
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]*Snapshot)}
}

// SaveSnapshot appends a new snapshot for the pattern.
func (s *MemoryStore) SaveSnapshot(patternID, code string, metadata map[string]string) (*Snapshot, error) {
	if patternID == "" {
		return nil, ErrEmptyPatternID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.snapshots[patternID]
	snap := &Snapshot{
		PatternID: patternID,
		Version:   len(history) + 1,
		Code:      code,
		Metadata:  copyMetadata(metadata),
		Digest:    util.Blake3HashHex([]byte(code)),
		CreatedAt: util.NowMs(),
	}
	s.snapshots[patternID] = append(history, snap)

	return snap, nil
}

// History returns the pattern's snapshots, newest-first.
func (s *MemoryStore) History(patternID string) ([]*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.snapshots[patternID]
	out := make([]*Snapshot, len(history))
	for i, snap := range history {
		out[len(history)-1-i] = snap
	}
	return out, nil
}

// Version returns the exact snapshot, or nil when unknown.
func (s *MemoryStore) Version(patternID string, version int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.snapshots[patternID]
	if version < 1 || version > len(history) {
		return nil, nil
	}
	return history[version-1], nil
}

// LatestVersion returns the highest version, or 0 for an unknown pattern.
func (s *MemoryStore) LatestVersion(patternID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.snapshots[patternID]), nil
}

// Rollback returns the code at the given version without writing anything.
func (s *MemoryStore) Rollback(patternID string, version int) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.snapshots[patternID]
	if version < 1 || version > len(history) {
		return "", false, nil
	}
	return history[version-1].Code, true, nil
}

func copyMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
