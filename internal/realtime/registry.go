// Package realtime tracks which users currently hold a live connection to
// the messaging collaborator. The registry has an explicit lifecycle: the
// connection layer calls Connect on open and Disconnect on close. Entries
// carry a TTL so a crashed connection cannot leave a user online forever.
package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 5 * time.Minute

type Registry interface {
	Connect(ctx context.Context, userID uint) error
	Disconnect(ctx context.Context, userID uint) error
	IsOnline(ctx context.Context, userID uint) (bool, error)
}

type redisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) Registry {
	return &redisRegistry{client: client}
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

func (r *redisRegistry) Connect(ctx context.Context, userID uint) error {
	return r.client.Set(ctx, presenceKey(userID), "1", presenceTTL).Err()
}

func (r *redisRegistry) Disconnect(ctx context.Context, userID uint) error {
	return r.client.Del(ctx, presenceKey(userID)).Err()
}

func (r *redisRegistry) IsOnline(ctx context.Context, userID uint) (bool, error) {
	n, err := r.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
