package locking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL = 2 * time.Minute
	keyPrefix      = "season-engine:lock:"
)

// releaseScript deletes the key only if it still holds our token, so an expired
// lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// renewScript extends the key only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker locks across instances sharing one Redis.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient connects and pings, the same way the odds storage does.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, key)
	}

	// Продлеваем TTL, пока батч не закончен: долгое продвижение не должно
	// отдать блокировку другому инстансу.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, renewInterval(l.ttl), func() (bool, error) {
			renewCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n, err := renewScript.Run(renewCtx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
			return n == 1, err
		}, l.logger.With(slog.String("key", key)))
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Release must not depend on the caller's context being alive.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock", slog.String("key", key), slog.Any("error", err))
			}
		})
	}, nil
}

func renewInterval(ttl time.Duration) time.Duration {
	if every := ttl / 3; every > 0 {
		return every
	}
	return ttl
}

// keepAlive calls renew every interval until stop is closed or renew reports
// that the lock is no longer ours. Transient errors are retried on the next tick.
func keepAlive(stop <-chan struct{}, interval time.Duration, renew func() (bool, error), logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := renew()
			if err != nil {
				logger.Warn("failed to extend lock", slog.Any("error", err))
				continue
			}
			if !held {
				logger.Error("lock expired before release")
				return
			}
		}
	}
}
