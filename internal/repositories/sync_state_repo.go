package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cmarsh/sitesync/internal/models"
)

// FileSyncStateRepository persists the SyncState aggregate as a single JSON
// document. Saves write to a temp file and rename over the target so a
// crash mid-write never leaves a truncated state file.
type FileSyncStateRepository struct {
	path string
}

func NewFileSyncStateRepository(path string) *FileSyncStateRepository {
	return &FileSyncStateRepository{path: path}
}

// Load reads the persisted state. A missing file is not an error: the
// process is starting for the first time and gets a fresh state.
func (r *FileSyncStateRepository) Load(_ context.Context) (*models.SyncState, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewSyncState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	var state models.SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync state: %w", err)
	}
	if state.PendingChanges == nil {
		state.PendingChanges = []models.PendingChange{}
	}
	if state.SyncHistory == nil {
		state.SyncHistory = []models.SyncHistoryEntry{}
	}
	return &state, nil
}

func (r *FileSyncStateRepository) Save(_ context.Context, state *models.SyncState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create sync state directory: %w", err)
		}
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace sync state file: %w", err)
	}
	return nil
}
