package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies which logical client a connection represents.
type Role string

const (
	RoleDevAdmin   Role = "dev_admin"
	RoleAdminPanel Role = "admin_panel"
	RoleWebsite    Role = "website"
)

// ParseRole validates the role parameter supplied at connect time.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDevAdmin, RoleAdminPanel, RoleWebsite:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown client role %q", s)
}

type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityScheduled Priority = "scheduled"
	PriorityLow       Priority = "low"
)

type MessageType string

const (
	TypeUpdate             MessageType = "update"
	TypeSyncRequest        MessageType = "sync_request"
	TypeSyncResponse       MessageType = "sync_response"
	TypePing               MessageType = "ping"
	TypePong               MessageType = "pong"
	TypeBackupStatus       MessageType = "backup_status"
	TypeScheduleInfo       MessageType = "schedule_info"
	TypeClientConnected    MessageType = "client_connected"
	TypeClientDisconnected MessageType = "client_disconnected"
	TypeForceSyncComplete  MessageType = "force_sync_complete"
	TypeFullSync           MessageType = "full_sync"
)

// TargetAll is the wildcard target used when a change is broadcast to every
// downstream role at once.
const TargetAll = "all"

// Message is the shared envelope for every frame on the sync connection,
// inbound and outbound. Data stays opaque except at the few edges the
// coordinator actually interprets.
type Message struct {
	Type      MessageType     `json:"type"`
	Source    Role            `json:"source,omitempty"`
	Target    string          `json:"target,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Priority  Priority        `json:"priority,omitempty"`
}

// SyncRequestData is the interpreted payload of a sync_request frame.
type SyncRequestData struct {
	RequestType string `json:"requestType"`
}

const (
	RequestFullState      = "full_state"
	RequestPendingChanges = "pending_changes"
	RequestForceSync      = "force_sync"
)

// ScheduleInfoData acknowledges a staged developer change.
type ScheduleInfoData struct {
	ChangeID     string `json:"changeId"`
	ScheduledFor string `json:"scheduledFor"`
}

// BackupStatusData reports the outcome of a backup cycle.
type BackupStatusData struct {
	Success   bool      `json:"success"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientEventData rides on client_connected / client_disconnected frames.
type ClientEventData struct {
	ClientID         string       `json:"clientId"`
	Role             Role         `json:"role"`
	ConnectedClients []ClientInfo `json:"connectedClients"`
}

// SyncStateSummary is the condensed view of SyncState sent to clients.
type SyncStateSummary struct {
	LastBackup          *time.Time `json:"lastBackup"`
	LastSync            *time.Time `json:"lastSync"`
	PendingChangesCount int        `json:"pendingChangesCount"`
}

// ScheduleSummary carries the next scheduled backup/release instants.
type ScheduleSummary struct {
	NextBackup time.Time `json:"nextBackup"`
	NextSync   time.Time `json:"nextSync"`
}

// SyncResponseData is sent on connect and in reply to full_state requests.
type SyncResponseData struct {
	SyncState        SyncStateSummary `json:"syncState"`
	Schedule         ScheduleSummary  `json:"schedule"`
	ConnectedClients []ClientInfo     `json:"connectedClients,omitempty"`
}
