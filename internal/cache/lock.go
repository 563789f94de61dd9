package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"KVisit/storage/redis"
)

// 分布式锁：SETNX 抢锁，值为持有者 token，释放时比较后删除，避免误删他人的锁
const (
	lockPrefix = "lock"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// UnlockFunc 释放已持有的锁
type UnlockFunc func(ctx context.Context) error

// Locker 会话级互斥
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, bool, error)
}

// RedisLocker 基于 Redis 的 Locker
type RedisLocker struct{}

// TryLock 抢锁失败返回 ok=false，不阻塞等待
func (RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, bool, error) {
	fullkey := redis.Key(lockPrefix, key)
	owner := uuid.NewString()

	ok, err := redis.Client().SetNX(ctx, fullkey, owner, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, redis.Client(), []string{fullkey}, owner).Err()
	}, true, nil
}
