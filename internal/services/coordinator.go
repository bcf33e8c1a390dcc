package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmarsh/sitesync/internal/models"
	"github.com/cmarsh/sitesync/internal/repositories"
)

const defaultChangeKind = "content_update"

// Coordinator is the sync state machine. It owns the SyncState aggregate
// and the propagation policy: owner-admin and public-site changes apply
// immediately, developer changes are staged until the daily cutover.
//
// Every entry point runs under one mutex, so each message or scheduler
// action executes to completion before the next — the same run-to-completion
// semantics as a single-threaded event loop.
type Coordinator struct {
	mu        sync.Mutex
	registry  *Registry
	states    repositories.SyncStateRepository
	backups   *BackupManager
	state     *models.SyncState
	backupAt  ClockTime
	releaseAt ClockTime
	now       func() time.Time
}

func NewCoordinator(ctx context.Context, registry *Registry, states repositories.SyncStateRepository, backups *BackupManager, backupAt, releaseAt ClockTime) (*Coordinator, error) {
	state, err := states.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	return &Coordinator{
		registry:  registry,
		states:    states,
		backups:   backups,
		state:     state,
		backupAt:  backupAt,
		releaseAt: releaseAt,
		now:       time.Now,
	}, nil
}

// ClientConnected registers the connection, sends it the current sync state
// snapshot, and tells every previously connected peer about the newcomer.
func (c *Coordinator) ClientConnected(conn Conn, role models.Role) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	client := c.registry.Register(conn, role)
	log.Printf("client connected: %s", client.ID)

	c.send(client, c.message(models.TypeSyncResponse, "", models.PriorityImmediate, c.syncResponseData(true)))

	notice := c.message(models.TypeClientConnected, role, models.PriorityLow, models.ClientEventData{
		ClientID:         client.ID,
		Role:             role,
		ConnectedClients: c.registry.Snapshot(),
	})
	for _, peer := range c.registry.All() {
		if peer.ID != client.ID {
			c.send(peer, notice)
		}
	}

	return client
}

// ClientDisconnected removes the client and notifies the remaining peers.
// Unknown ids are a no-op.
func (c *Coordinator) ClientDisconnected(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	client := c.registry.Unregister(clientID)
	if client == nil {
		return
	}
	log.Printf("client disconnected: %s", client.ID)

	notice := c.message(models.TypeClientDisconnected, client.Role, models.PriorityLow, models.ClientEventData{
		ClientID:         client.ID,
		Role:             client.Role,
		ConnectedClients: c.registry.Snapshot(),
	})
	for _, peer := range c.registry.All() {
		c.send(peer, notice)
	}
}

// HandleRaw processes one inbound frame. Malformed frames are logged and
// dropped; the connection stays open and no state changes.
func (c *Coordinator) HandleRaw(clientID string, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, ok := c.registry.Get(clientID)
	if !ok {
		// Client likely disconnected mid-flight
		log.Printf("dropping message from unknown client %s", clientID)
		return
	}
	c.registry.Heartbeat(clientID)

	var msg models.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("malformed message from %s: %v", clientID, err)
		return
	}

	switch msg.Type {
	case models.TypePing:
		c.send(client, c.message(models.TypePong, "", models.PriorityImmediate, nil))
	case models.TypeUpdate:
		c.handleUpdate(client, &msg)
	case models.TypeSyncRequest:
		c.handleSyncRequest(client, &msg)
	default:
		log.Printf("unhandled message type %q from %s", msg.Type, clientID)
	}
}

// handleUpdate applies the asymmetric propagation policy. Developer updates
// stage unless explicitly immediate; everything else propagates now.
func (c *Coordinator) handleUpdate(client *Client, msg *models.Message) {
	now := c.now()
	kind := peekKind(msg.Data)

	if client.Role == models.RoleDevAdmin && msg.Priority != models.PriorityImmediate {
		c.stageChange(client, msg, kind, now)
		return
	}

	out := &models.Message{
		Type:      models.TypeUpdate,
		Source:    client.Role,
		Data:      msg.Data,
		Timestamp: now,
		Priority:  models.PriorityImmediate,
	}

	var target string
	switch client.Role {
	case models.RoleAdminPanel:
		// Owner edits go live, and developers get an informational copy so
		// they see live changes without them being staged.
		target = string(models.RoleWebsite)
		out.Target = target
		c.broadcast(models.RoleWebsite, out)
		c.broadcast(models.RoleDevAdmin, c.notice(out))
	case models.RoleWebsite:
		target = string(models.RoleAdminPanel)
		out.Target = target
		c.broadcast(models.RoleAdminPanel, out)
	case models.RoleDevAdmin:
		// Explicit immediate-priority developer update: bypasses staging and
		// propagates to both downstream roles, like a one-off release.
		target = models.TargetAll
		out.Target = target
		c.broadcast(models.RoleAdminPanel, out)
		c.broadcast(models.RoleWebsite, out)
	}

	c.state.AppendHistory(models.SyncHistoryEntry{
		Timestamp: now,
		Kind:      kind,
		Source:    client.Role,
		Target:    target,
		Success:   true,
	})
	c.state.LastSync = &now
	c.persist()
}

// stageChange records a developer update as a PendingChange scheduled for
// the next cutover instant.
func (c *Coordinator) stageChange(client *Client, msg *models.Message, kind string, now time.Time) {
	change := models.PendingChange{
		ID:           uuid.NewString(),
		Source:       models.RoleDevAdmin,
		Kind:         kind,
		Payload:      msg.Data,
		CreatedAt:    now,
		ScheduledFor: c.releaseAt.Next(now),
	}
	c.state.PendingChanges = append(c.state.PendingChanges, change)
	c.persist()

	log.Printf("staged change %s from %s for %s", change.ID, client.ID, change.ScheduledFor.Format(time.RFC3339))

	c.send(client, c.message(models.TypeScheduleInfo, "", models.PriorityImmediate, models.ScheduleInfoData{
		ChangeID:     change.ID,
		ScheduledFor: change.ScheduledFor.Format("Mon Jan 2 15:04"),
	}))

	// Owner admins track how much is queued up for the next release
	count := c.message(models.TypeSyncResponse, "", models.PriorityLow, models.SyncStateSummary{
		LastBackup:          c.state.LastBackup,
		LastSync:            c.state.LastSync,
		PendingChangesCount: len(c.state.Unapplied()),
	})
	c.broadcast(models.RoleAdminPanel, count)
}

func (c *Coordinator) handleSyncRequest(client *Client, msg *models.Message) {
	var req models.SyncRequestData
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Printf("malformed sync_request from %s: %v", client.ID, err)
		return
	}

	switch req.RequestType {
	case models.RequestFullState:
		c.send(client, c.message(models.TypeSyncResponse, "", models.PriorityImmediate, c.syncResponseData(true)))
	case models.RequestPendingChanges:
		c.send(client, c.message(models.TypeSyncResponse, "", models.PriorityImmediate, map[string]any{
			"pendingChanges": c.state.Unapplied(),
		}))
	case models.RequestForceSync:
		if client.Role != models.RoleDevAdmin {
			// Caller bug, not a reportable fault
			log.Printf("ignoring force_sync from non-developer %s", client.ID)
			return
		}
		released := c.releasePending()
		c.send(client, c.message(models.TypeForceSyncComplete, "", models.PriorityImmediate, map[string]any{
			"releasedCount": released,
		}))
	default:
		log.Printf("unknown sync_request type %q from %s", req.RequestType, client.ID)
	}
}

// ReleasePendingChanges sweeps every change still marked unapplied,
// broadcasts each to the downstream roles in staging order, and persists
// once at the end. Safe to call at any time: an empty sweep is a no-op.
func (c *Coordinator) ReleasePendingChanges() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releasePending()
}

func (c *Coordinator) releasePending() int {
	now := c.now()
	released := 0

	for i := range c.state.PendingChanges {
		change := &c.state.PendingChanges[i]
		if change.Applied {
			continue
		}

		out := &models.Message{
			Type:      models.TypeUpdate,
			Source:    models.RoleDevAdmin,
			Target:    models.TargetAll,
			Data:      change.Payload,
			Timestamp: now,
			Priority:  models.PriorityImmediate,
		}
		c.broadcast(models.RoleAdminPanel, out)
		c.broadcast(models.RoleWebsite, out)

		change.Applied = true
		c.state.AppendHistory(models.SyncHistoryEntry{
			Timestamp: now,
			Kind:      change.Kind,
			Source:    models.RoleDevAdmin,
			Target:    models.TargetAll,
			Success:   true,
		})
		released++
	}

	if released == 0 {
		log.Println("release: no pending changes")
		return 0
	}

	c.state.LastSync = &now
	c.persist()
	log.Printf("release: applied %d staged change(s)", released)
	return released
}

// RunBackup creates a snapshot, records lastBackup, and tells every
// connected client. Returns false (and leaves lastBackup untouched) when
// the snapshot fails; the scheduler will try again next day.
func (c *Coordinator) RunBackup() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	path, err := c.backups.CreateBackup(now)
	if err != nil {
		log.Printf("CRITICAL: backup failed: %v", err)
		return false
	}

	c.state.LastBackup = &now
	c.persist()

	status := c.message(models.TypeBackupStatus, "", models.PriorityLow, models.BackupStatusData{
		Success:   true,
		Path:      path,
		Timestamp: now,
	})
	for _, peer := range c.registry.All() {
		c.send(peer, status)
	}

	log.Printf("backup created at %s", path)
	return true
}

// LastBackup reports the persisted backup timestamp, for the scheduler's
// same-day duplicate check.
func (c *Coordinator) LastBackup() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.LastBackup
}

// Status snapshots the sync state, schedule, and connected clients for the
// diagnostic API.
func (c *Coordinator) Status() models.SyncResponseData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncResponseData(true)
}

// History returns a copy of the rolling audit log, newest last.
func (c *Coordinator) History() []models.SyncHistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.SyncHistoryEntry, len(c.state.SyncHistory))
	copy(out, c.state.SyncHistory)
	return out
}

// PendingChanges returns the changes still awaiting release.
func (c *Coordinator) PendingChanges() []models.PendingChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Unapplied()
}

func (c *Coordinator) syncResponseData(withClients bool) models.SyncResponseData {
	now := c.now()
	data := models.SyncResponseData{
		SyncState: c.state.Summary(),
		Schedule: models.ScheduleSummary{
			NextBackup: c.backupAt.Next(now),
			NextSync:   c.releaseAt.Next(now),
		},
	}
	if withClients {
		data.ConnectedClients = c.registry.Snapshot()
	}
	return data
}

// persist writes the state through to durable storage. On failure the
// in-memory state runs ahead of the durable copy until the next successful
// write; log loudly so an operator can step in.
func (c *Coordinator) persist() {
	if err := c.states.Save(context.Background(), c.state); err != nil {
		log.Printf("CRITICAL: failed to persist sync state: %v", err)
	}
}

func (c *Coordinator) message(t models.MessageType, source models.Role, priority models.Priority, data any) *models.Message {
	msg := &models.Message{
		Type:      t,
		Source:    source,
		Timestamp: c.now(),
		Priority:  priority,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			log.Printf("failed to marshal %s payload: %v", t, err)
			return msg
		}
		msg.Data = raw
	}
	return msg
}

// notice copies an update as the low-priority informational variant sent to
// developer clients.
func (c *Coordinator) notice(msg *models.Message) *models.Message {
	copied := *msg
	copied.Priority = models.PriorityLow
	copied.Target = string(models.RoleDevAdmin)
	return &copied
}

func (c *Coordinator) broadcast(role models.Role, msg *models.Message) {
	for _, peer := range c.registry.ByRole(role) {
		c.send(peer, msg)
	}
}

// send failures are logged and otherwise ignored: a dead connection is
// cleaned up by its own read loop, and one bad socket must not affect the
// handler that happened to write to it.
func (c *Coordinator) send(client *Client, msg *models.Message) {
	if err := client.Conn.Send(msg); err != nil {
		log.Printf("failed to send %s to %s: %v", msg.Type, client.ID, err)
	}
}

// peekKind extracts the application-defined change tag from an otherwise
// opaque payload.
func peekKind(data json.RawMessage) string {
	var peek struct {
		Kind string `json:"kind"`
	}
	if len(data) == 0 || json.Unmarshal(data, &peek) != nil || peek.Kind == "" {
		return defaultChangeKind
	}
	return peek.Kind
}
