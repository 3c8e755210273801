package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the guard only when it still belongs to the caller's session.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// OwnerGuard is a Redis-backed app.OwnerGuard so several bot replicas agree on
// which owner is mid-quiz. Keys expire on their own if a replica dies.
type OwnerGuard struct {
	client *redis.Client
}

// NewOwnerGuard returns a guard keyed by user in client.
func NewOwnerGuard(client *redis.Client) *OwnerGuard {
	return &OwnerGuard{client: client}
}

// Acquire claims userID for sessionID unless another session holds it.
func (g *OwnerGuard) Acquire(ctx context.Context, userID, sessionID string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.key(userID), sessionID, ttl).Result()
}

// Release frees userID only if sessionID still holds it.
func (g *OwnerGuard) Release(ctx context.Context, userID, sessionID string) error {
	return releaseScript.Run(ctx, g.client, []string{g.key(userID)}, sessionID).Err()
}

func (g *OwnerGuard) key(userID string) string {
	return "quiz:active:" + userID
}
