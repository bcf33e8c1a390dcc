package models

import "time"

// ClientInfo is the registry snapshot shape included in outbound payloads
// and diagnostics.
type ClientInfo struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Connected bool      `json:"connected"`
	LastPing  time.Time `json:"last_ping"`
}
