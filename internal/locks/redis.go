package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never releases a lock someone else took over.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DefaultRedisTTL bounds a lease whose holder crashed.
const DefaultRedisTTL = 30 * time.Minute

// RedisClient is the subset of *redis.Client the locker uses.
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis is a Locker shared by every process using the same Redis database.
type Redis struct {
	rdb    RedisClient
	prefix string
}

var _ Locker = (*Redis)(nil)

func NewRedis(rdb RedisClient, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	token := uuid.NewString()
	full := r.prefix + key
	acquired, err := r.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !acquired {
		return nil, ErrLocked
	}
	return &redisLease{rdb: r.rdb, key: full, token: token}, nil
}

type redisLease struct {
	rdb   redis.Scripter
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", l.key, err)
	}
	return nil
}
