package database

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/config"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockHeld 表示锁已被其他请求持有
var ErrLockHeld = errors.New("lock is held by another request")

func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return rdb, nil
}

// releaseScript only deletes the key when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// AcquireLock takes a short-lived SETNX lock. The returned func releases it.
// A nil client yields a no-op lock so callers work without redis.
func AcquireLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (func(), error) {
	if rdb == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		releaseScript.Run(context.Background(), rdb, []string{key}, token)
	}, nil
}
