package repositories

import (
	"context"
	"errors"

	"github.com/cmarsh/sitesync/internal/models"
)

var ErrNotFound = errors.New("not found")

// SyncStateRepository is the durable store for the coordinator's aggregate
// state: load once at startup, write through after every mutation.
type SyncStateRepository interface {
	Load(ctx context.Context) (*models.SyncState, error)
	Save(ctx context.Context, state *models.SyncState) error
}

type PageRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Page, error)
	List(ctx context.Context) ([]*models.Page, error)
	Upsert(ctx context.Context, page *models.Page) error
	Delete(ctx context.Context, slug string) error
}

// PresenceRepository mirrors the in-memory client registry into an external
// store for diagnostics. Entries carry a TTL, so stale clients age out of
// the mirror without registry involvement.
type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.Presence) error
	GetPresence(ctx context.Context, clientID string) (*models.Presence, error)
	DeletePresence(ctx context.Context, clientID string) error
}
