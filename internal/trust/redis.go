package trust

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LoadRedis fetches the trusted-user set from a Redis set key. This is the
// directory-service path: an external system keeps the membership current
// and each run takes a snapshot of it.
func LoadRedis(ctx context.Context, addr, key string) (Set, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	members, err := client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching trusted users from redis %s: %w", key, err)
	}
	return New(members...), nil
}
