package cache

import (
	"context"
	"fmt"
	"time"

	"KVisit/storage/redis"
)

// 消息幂等：同一个 message_id 只处理一次
const (
	messageProcessedPrefix = "mq:processed"
	processedTTL           = 24 * time.Hour
)

// MessageMarker 消息处理标记
type MessageMarker interface {
	TryMarkMessageProcessing(ctx context.Context, messageID string) (bool, error)
	UnmarkMessageProcessing(ctx context.Context, messageID string) error
	MarkMessageProcessed(ctx context.Context, messageID string) error
}

// RedisMessageMarker ttl <= 0 时使用 24 小时
type RedisMessageMarker struct {
	TTL time.Duration
}

func (m RedisMessageMarker) ttl() time.Duration {
	if m.TTL <= 0 {
		return processedTTL
	}
	return m.TTL
}

// TryMarkMessageProcessing SETNX 标记，true 表示首次处理
func (m RedisMessageMarker) TryMarkMessageProcessing(ctx context.Context, messageID string) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)

	ok, err := redis.Client().SetNX(ctx, key, "processing", m.ttl()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return ok, nil
}

// UnmarkMessageProcessing 处理失败时删除标记，允许重投后再处理
func (m RedisMessageMarker) UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	return redis.Client().Del(ctx, redis.Key(messageProcessedPrefix, messageID)).Err()
}

// MarkMessageProcessed 处理成功
func (m RedisMessageMarker) MarkMessageProcessed(ctx context.Context, messageID string) error {
	return redis.Client().Set(ctx, redis.Key(messageProcessedPrefix, messageID), "completed", m.ttl()).Err()
}
