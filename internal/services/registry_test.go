package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/sitesync/internal/models"
)

// TestRegistry_Register tests id shape and lookup
func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry(nil)

	client := registry.Register(&fakeConn{}, models.RoleDevAdmin)

	assert.True(t, strings.HasPrefix(client.ID, "dev_admin_"))
	assert.True(t, client.Connected)
	assert.False(t, client.LastPing.IsZero())

	got, ok := registry.Get(client.ID)
	require.True(t, ok)
	assert.Same(t, client, got)
}

// TestRegistry_UniqueIDs tests that rapid registrations never collide
func TestRegistry_UniqueIDs(t *testing.T) {
	registry := NewRegistry(nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		client := registry.Register(&fakeConn{}, models.RoleWebsite)
		assert.False(t, seen[client.ID], "duplicate id %s", client.ID)
		seen[client.ID] = true
	}
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry(nil)
	client := registry.Register(&fakeConn{}, models.RoleWebsite)

	removed := registry.Unregister(client.ID)

	require.NotNil(t, removed)
	assert.False(t, removed.Connected)
	_, ok := registry.Get(client.ID)
	assert.False(t, ok)

	// Unknown id is a no-op
	assert.Nil(t, registry.Unregister("website_0_00000000"))
}

func TestRegistry_Heartbeat(t *testing.T) {
	registry := NewRegistry(nil)
	client := registry.Register(&fakeConn{}, models.RoleAdminPanel)
	before := client.LastPing

	time.Sleep(5 * time.Millisecond)
	require.True(t, registry.Heartbeat(client.ID))

	assert.True(t, client.LastPing.After(before))
	assert.False(t, registry.Heartbeat("admin_panel_0_00000000"))
}

// TestRegistry_ByRoleAndSnapshot tests role filtering and the diagnostic
// snapshot ordering
func TestRegistry_ByRoleAndSnapshot(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(&fakeConn{}, models.RoleWebsite)
	registry.Register(&fakeConn{}, models.RoleWebsite)
	registry.Register(&fakeConn{}, models.RoleAdminPanel)

	assert.Len(t, registry.ByRole(models.RoleWebsite), 2)
	assert.Len(t, registry.ByRole(models.RoleAdminPanel), 1)
	assert.Empty(t, registry.ByRole(models.RoleDevAdmin))

	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 3)
	for i := 1; i < len(snapshot); i++ {
		assert.Less(t, snapshot[i-1].ID, snapshot[i].ID)
	}
}
