package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/sitesync/internal/models"
)

// TestPresenceRepository_SetAndGet tests the mirror round trip
func TestPresenceRepository_SetAndGet(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisPresenceRepository(client)
	ctx := context.Background()

	clientID := "dev_admin_1700000000000_testonly"
	defer client.Del(ctx, presenceKey(clientID))

	err := repo.SetPresence(ctx, &models.Presence{
		ClientID: clientID,
		Role:     models.RoleDevAdmin,
		Status:   string(models.StatusOnline),
	})
	require.NoError(t, err)

	got, err := repo.GetPresence(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOnline), got.Status)
	assert.Equal(t, models.RoleDevAdmin, got.Role)
	assert.WithinDuration(t, time.Now(), got.LastSeen, 5*time.Second)
}

// TestPresenceRepository_MissingIsOffline tests that an absent key reads as
// an offline client rather than an error
func TestPresenceRepository_MissingIsOffline(t *testing.T) {
	repo := NewRedisPresenceRepository(getTestRedisClient(t))

	got, err := repo.GetPresence(context.Background(), "website_0_absent00")

	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOffline), got.Status)
}

func TestPresenceRepository_Delete(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisPresenceRepository(client)
	ctx := context.Background()

	clientID := "website_1700000000000_testdel0"
	require.NoError(t, repo.SetPresence(ctx, &models.Presence{
		ClientID: clientID,
		Role:     models.RoleWebsite,
		Status:   string(models.StatusOnline),
	}))

	require.NoError(t, repo.DeletePresence(ctx, clientID))

	got, err := repo.GetPresence(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOffline), got.Status)
}

// Helper: connect to the local test Redis, or skip when none is running
func getTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // keep test keys away from any real data
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	t.Cleanup(func() { client.Close() })
	return client
}
