package models

import (
	"encoding/json"
	"time"
)

// HistoryLimit caps the rolling sync history. Oldest entries drop first.
const HistoryLimit = 100

// PendingChange is a developer-originated update staged for the daily
// release window. Records are kept after release for audit; Applied flips
// to true exactly once and never back.
type PendingChange struct {
	ID           string          `json:"id"`
	Source       Role            `json:"source"`
	Kind         string          `json:"kind"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	Applied      bool            `json:"applied"`
}

// SyncHistoryEntry is one append-only audit record of a completed propagation.
type SyncHistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Source    Role      `json:"source"`
	Target    string    `json:"target"`
	Success   bool      `json:"success"`
}

// SyncState is the persisted aggregate root. It is owned exclusively by the
// coordinator and written through after every mutation.
type SyncState struct {
	LastBackup     *time.Time         `json:"last_backup,omitempty"`
	LastSync       *time.Time         `json:"last_sync,omitempty"`
	PendingChanges []PendingChange    `json:"pending_changes"`
	SyncHistory    []SyncHistoryEntry `json:"sync_history"`
}

func NewSyncState() *SyncState {
	return &SyncState{
		PendingChanges: []PendingChange{},
		SyncHistory:    []SyncHistoryEntry{},
	}
}

// Unapplied returns the changes still awaiting release, in staging order.
func (s *SyncState) Unapplied() []PendingChange {
	var out []PendingChange
	for _, c := range s.PendingChanges {
		if !c.Applied {
			out = append(out, c)
		}
	}
	return out
}

// AppendHistory records an entry, evicting the oldest entries beyond
// HistoryLimit.
func (s *SyncState) AppendHistory(e SyncHistoryEntry) {
	s.SyncHistory = append(s.SyncHistory, e)
	if n := len(s.SyncHistory) - HistoryLimit; n > 0 {
		s.SyncHistory = append(s.SyncHistory[:0], s.SyncHistory[n:]...)
	}
}

// Summary condenses the state for outbound sync_response payloads.
func (s *SyncState) Summary() SyncStateSummary {
	return SyncStateSummary{
		LastBackup:          s.LastBackup,
		LastSync:            s.LastSync,
		PendingChangesCount: len(s.Unapplied()),
	}
}
