package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"KVisit/pkg/logger"
	"KVisit/storage/redis"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	// 空值缓存TTL，较短时间避免长期占用
	emptyValueTTL = 1 * time.Minute
	// 防雪崩随机延迟范围
	breakerRandomDelayMax = 50 * time.Millisecond
)

// Lookup 一次缓存查询的结果
type Lookup int

const (
	Miss  Lookup = iota // 未命中，需要回源
	Hit                 // 命中正常值，已写入 dest
	Empty               // 命中空值标识，说明源里也没有
)

// ProtectedCache 带空值保护和随机延迟的 JSON 缓存
type ProtectedCache struct {
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
	jitter    time.Duration
}

// NewProtectedCache 创建受保护的缓存实例
func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
		jitter:    breakerRandomDelayMax,
	}
}

// Set value 为 nil 时写入空值标识
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	data, ttl, err := pc.encode(value)
	if err != nil {
		return err
	}
	return redis.Client().Set(ctx, redis.Key(pc.keyPrefix, key), data, ttl).Err()
}

// Get 命中正常值时反序列化进 dest
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (Lookup, error) {
	if err := pc.addBreakerDelay(ctx); err != nil {
		logger.Logger.Warn("Failed to add breaker delay",
			zap.String("prefix", pc.keyPrefix),
			zap.Error(err),
		)
	}

	data, err := redis.Client().Get(ctx, redis.Key(pc.keyPrefix, key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Miss, nil
		}
		return Miss, fmt.Errorf("failed to get cache: %w", err)
	}

	return pc.decode(data, dest)
}

// Delete 删除缓存
func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return redis.Client().Del(ctx, redis.Key(pc.keyPrefix, key)).Err()
}

func (pc *ProtectedCache) encode(value interface{}) (string, time.Duration, error) {
	if value == nil {
		return emptyValueFlag, pc.emptyTTL, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return string(b), pc.ttl, nil
}

func (pc *ProtectedCache) decode(data string, dest interface{}) (Lookup, error) {
	if data == emptyValueFlag {
		return Empty, nil
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return Miss, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return Hit, nil
}

// addBreakerDelay 添加防雪崩随机延迟
func (pc *ProtectedCache) addBreakerDelay(ctx context.Context) error {
	if pc.jitter <= 0 {
		return nil
	}
	delay := time.Duration(rand.Int63n(int64(pc.jitter)))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
