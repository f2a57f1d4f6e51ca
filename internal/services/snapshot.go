package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwebster45206/case-engine/pkg/casestate"
)

const snapshotTTL = 24 * time.Hour

// SnapshotStore keeps the latest case state snapshot of each session for inspection
// (casectl snapshot). It is a one-way debugging mirror: snapshots are never read back into
// a session, and there is no save or resume.
type SnapshotStore struct {
	cache Cache
	ttl   time.Duration
}

func NewSnapshotStore(cache Cache) *SnapshotStore {
	return &SnapshotStore{cache: cache, ttl: snapshotTTL}
}

func snapshotKey(sessionID string) string {
	return "case-state:" + sessionID
}

// Save overwrites the session's snapshot.
func (s *SnapshotStore) Save(ctx context.Context, sessionID string, snap casestate.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.cache.Set(ctx, snapshotKey(sessionID), data, s.ttl)
}

// Load returns the session's snapshot for display; ok is false when none is stored.
func (s *SnapshotStore) Load(ctx context.Context, sessionID string) (snap casestate.Snapshot, ok bool, err error) {
	raw, err := s.cache.Get(ctx, snapshotKey(sessionID))
	if err != nil || raw == "" {
		return casestate.Snapshot{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return casestate.Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// Delete forgets the session's snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, sessionID string) error {
	return s.cache.Del(ctx, snapshotKey(sessionID))
}
