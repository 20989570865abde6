package keylock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired holder cannot free a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process pointing at the same Redis.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	log    *zap.Logger
}

// RedisOption configures a RedisLocker.
type RedisOption func(*RedisLocker)

// WithPrefix sets the key prefix. Default "ttt:lock:".
func WithPrefix(p string) RedisOption { return func(l *RedisLocker) { l.prefix = p } }

// WithTTL bounds how long a crashed holder can block a key. Default 30s.
func WithTTL(ttl time.Duration) RedisOption { return func(l *RedisLocker) { l.ttl = ttl } }

// WithRetryInterval sets the polling interval while waiting. Default 50ms.
func WithRetryInterval(d time.Duration) RedisOption { return func(l *RedisLocker) { l.retry = d } }

// NewRedisLocker returns a RedisLocker using client.
func NewRedisLocker(client redis.UniversalClient, log *zap.Logger, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client: client,
		prefix: "ttt:lock:",
		ttl:    30 * time.Second,
		retry:  50 * time.Millisecond,
		log:    log,
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Lock implements Locker. It polls SET NX PX until it wins or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// The caller's ctx may already be canceled; release must still run.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{name}, token).Err(); err != nil && err != redis.Nil {
			l.log.Warn("release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
