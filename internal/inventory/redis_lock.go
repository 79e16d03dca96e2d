package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/concert-ticketing/internal/logger"
)

// releaseScript deletes the lock only if it is still owned by the caller.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker serialises concerts across every server instance sharing a
// Redis.  The key expires after ttl so a crashed holder cannot block a
// concert forever; ttl must comfortably exceed the select-and-reserve step.
type RedisLocker struct {
	rdb      redis.Cmdable
	ttl      time.Duration
	wait     time.Duration
	retry    time.Duration
	prefix   string
	log      *logger.Logger
	newToken func() string
}

// NewRedisLocker returns a RedisLocker with keys of the form concert_lock:{id}.
func NewRedisLocker(rdb redis.Cmdable, ttl, wait time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		rdb:      rdb,
		ttl:      ttl,
		wait:     wait,
		retry:    10 * time.Millisecond,
		prefix:   "concert_lock",
		log:      log,
		newToken: func() string { return uuid.NewString() },
	}
}

func (l *RedisLocker) key(concertID uint64) string {
	return fmt.Sprintf("%s:%d", l.prefix, concertID)
}

// Lock polls SET NX with exponential backoff until the lock is taken, the
// wait elapses or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, concertID uint64) (func(), error) {
	key := l.key(concertID)
	token := l.newToken()
	deadline := time.Now().Add(l.wait)
	backoff := l.retry

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// unlocker releases with a fresh context so that a cancelled request still
// frees the lock.
func (l *RedisLocker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			n, err := l.rdb.Eval(ctx, releaseScript, []string{key}, token).Int64()
			if err != nil {
				l.log.Warn("LOCK", fmt.Sprintf("release %s failed: %v", key, err))
				return
			}
			if n == 0 {
				l.log.Warn("LOCK", fmt.Sprintf("%s expired before release", key))
			}
		})
	}
}
