package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmarsh/sitesync/internal/models"
	"github.com/cmarsh/sitesync/internal/repositories"
)

// Conn is the transport handle held per client. The websocket layer
// satisfies it; tests satisfy it with an in-memory recorder.
type Conn interface {
	Send(msg *models.Message) error
}

// Client is one live connection in the registry. Never persisted.
type Client struct {
	ID        string
	Role      models.Role
	Conn      Conn
	LastPing  time.Time
	Connected bool
}

func (c *Client) Info() models.ClientInfo {
	return models.ClientInfo{
		ID:        c.ID,
		Role:      c.Role,
		Connected: c.Connected,
		LastPing:  c.LastPing,
	}
}

// Registry is the authoritative record of currently connected clients.
// Mutations happen on the coordinator's serialized path; the lock exists so
// HTTP diagnostics can snapshot concurrently.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	presence repositories.PresenceRepository // nil when no mirror is configured
}

func NewRegistry(presence repositories.PresenceRepository) *Registry {
	return &Registry{
		clients:  make(map[string]*Client),
		presence: presence,
	}
}

// Register stores a fresh client record and returns it. IDs are
// {role}_{unix-millis}_{random} so log lines identify the role at a glance.
func (r *Registry) Register(conn Conn, role models.Role) *Client {
	now := time.Now()
	client := &Client{
		ID:        fmt.Sprintf("%s_%d_%s", role, now.UnixMilli(), uuid.NewString()[:8]),
		Role:      role,
		Conn:      conn,
		LastPing:  now,
		Connected: true,
	}

	r.mu.Lock()
	r.clients[client.ID] = client
	r.mu.Unlock()

	r.mirrorPresence(client)
	return client
}

// Unregister removes the client and returns it, or nil if the id is unknown.
func (r *Registry) Unregister(clientID string) *Client {
	r.mu.Lock()
	client, ok := r.clients[clientID]
	if ok {
		client.Connected = false
		delete(r.clients, clientID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if r.presence != nil {
		ctx, cancel := presenceContext()
		defer cancel()
		if err := r.presence.DeletePresence(ctx, clientID); err != nil {
			log.Printf("presence mirror: failed to delete %s: %v", clientID, err)
		}
	}
	return client
}

// Heartbeat bumps lastPing. Called on every inbound message, not only
// explicit pings. Returns false for unknown ids.
func (r *Registry) Heartbeat(clientID string) bool {
	r.mu.Lock()
	client, ok := r.clients[clientID]
	if ok {
		client.LastPing = time.Now()
	}
	r.mu.Unlock()

	if ok {
		r.mirrorPresence(client)
	}
	return ok
}

// Get looks up a live client by id.
func (r *Registry) Get(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[clientID]
	return client, ok
}

// ByRole returns every connected client with the given role.
func (r *Registry) ByRole(role models.Role) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Client
	for _, c := range r.clients {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// All returns every connected client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Snapshot returns the connected-clients list for outbound payloads and
// diagnostics, ordered by id for stable output.
func (r *Registry) Snapshot() []models.ClientInfo {
	r.mu.RLock()
	infos := make([]models.ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		infos = append(infos, c.Info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// mirrorPresence is best-effort: the mirror is a diagnostic convenience and
// must never affect registry state.
func (r *Registry) mirrorPresence(client *Client) {
	if r.presence == nil {
		return
	}
	ctx, cancel := presenceContext()
	defer cancel()
	err := r.presence.SetPresence(ctx, &models.Presence{
		ClientID: client.ID,
		Role:     client.Role,
		Status:   string(models.StatusOnline),
	})
	if err != nil {
		log.Printf("presence mirror: failed to set %s: %v", client.ID, err)
	}
}

func presenceContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}
