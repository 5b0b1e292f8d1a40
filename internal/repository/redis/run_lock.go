package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type runLocker struct {
	rdb redis.Cmdable
}

func NewRunLocker(rdb redis.Cmdable) payroll.RunLocker {
	return &runLocker{rdb: rdb}
}

// Acquire implements payroll.RunLocker.
func (l *runLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", payroll.ErrRunInProgress
	}

	return token, nil
}

// Release implements payroll.RunLocker.
func (l *runLocker) Release(ctx context.Context, key string, token string) error {
	err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}
