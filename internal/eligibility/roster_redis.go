package eligibility

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vouch/internal/identity"
)

// RedisRoster backs the authorized-address set with a Redis set so multiple
// bot instances share one roster. Membership stays byte-exact like the
// in-memory Roster.
type RedisRoster struct {
	client *redis.Client
	key    string
}

func NewRedisRoster(client *redis.Client, key string) *RedisRoster {
	return &RedisRoster{client: client, key: key}
}

// Seed mirrors the startup roster into Redis. SADD is idempotent, so
// re-seeding on every boot is safe.
func (r *RedisRoster) Seed(ctx context.Context, emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	members := make([]any, len(emails))
	for i, email := range emails {
		members[i] = email
	}
	if err := r.client.SAdd(ctx, r.key, members...).Err(); err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}
	return nil
}

func (r *RedisRoster) Eligible(ctx context.Context, email string, _ identity.Community) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key, email).Result()
	if err != nil {
		return false, fmt.Errorf("roster membership: %w", err)
	}
	return ok, nil
}
