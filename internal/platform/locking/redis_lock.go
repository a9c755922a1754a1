package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed holder can block others
const DefaultTTL = 5 * time.Minute

// ErrLockNotHeld is returned by unlock when the key expired or changed owner
var ErrLockNotHeld = errors.New("lock no longer held")

// releaseScript deletes the key only if it still carries the caller's token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// redisClient is the subset of *redis.Client the locker needs
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a single-node mutual exclusion lock. Each acquisition stores a
// unique token so a holder whose TTL lapsed cannot release a successor's lock.
type RedisLocker struct {
	client redisClient
	logger *slog.Logger
}

func NewRedisLocker(logger *slog.Logger, client redisClient) *RedisLocker {
	return &RedisLocker{client: client, logger: logger}
}

// TryLock attempts to take key without waiting
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	token := ulid.Make().String()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		l.logger.Debug("Lock is held elsewhere", "key", key)
		return nil, false, nil
	}

	l.logger.Debug("Lock acquired", "key", key, "ttl", ttl)
	unlock := func(ctx context.Context) error {
		released, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		if released == 0 {
			l.logger.Warn("Lock expired before release", "key", key, "ttl", ttl)
			return ErrLockNotHeld
		}
		return nil
	}
	return unlock, true, nil
}
