package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cmarsh/sitesync/internal/models"
)

const (
	presenceKeyPrefix = "presence:"
	presenceTTL       = 60 * time.Second // entry expires without a heartbeat
)

// RedisPresenceRepository mirrors registry membership into Redis so an
// operator can inspect connected clients without touching the server. The
// TTL means a crashed client disappears from the mirror on its own.
type RedisPresenceRepository struct {
	client *redis.Client
}

func NewRedisPresenceRepository(client *redis.Client) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client}
}

// SetPresence sets or refreshes the presence for a client. The registry
// calls this on connect and on every heartbeat.
func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	presence.LastSeen = time.Now()

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	key := presenceKey(presence.ClientID)
	if err := r.client.Set(ctx, key, data, presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}

	return nil
}

func (r *RedisPresenceRepository) GetPresence(ctx context.Context, clientID string) (*models.Presence, error) {
	key := presenceKey(clientID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// No presence = client is offline
		return &models.Presence{
			ClientID: clientID,
			Status:   string(models.StatusOffline),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.Presence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}

	return &presence, nil
}

func (r *RedisPresenceRepository) DeletePresence(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, presenceKey(clientID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

// Helper: build Redis key for presence
func presenceKey(clientID string) string {
	return presenceKeyPrefix + clientID
}
