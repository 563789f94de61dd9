package cache

import (
	"context"
	"time"

	"KVisit/internal/wizard"
)

// 已完成引导的规范化记录，读多写少，worker 收到完成事件后预热
const (
	profilePrefix = "onboarding:profile"
)

// CachedProfile 缓存中的记录
type CachedProfile struct {
	UserID      string        `json:"user_id"`
	Record      wizard.Record `json:"record"`
	CompletedAt time.Time     `json:"completed_at"`
}

// ProfileCache 完成记录的读缓存
type ProfileCache interface {
	GetProfile(ctx context.Context, userID string) (*CachedProfile, Lookup, error)
	// SetProfile profile 为 nil 时写入空值标识
	SetProfile(ctx context.Context, userID string, profile *CachedProfile) error
	DeleteProfile(ctx context.Context, userID string) error
}

// RedisProfileCache 基于 ProtectedCache
type RedisProfileCache struct {
	cache *ProtectedCache
}

func NewRedisProfileCache(ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{cache: NewProtectedCache(profilePrefix, ttl)}
}

func (c *RedisProfileCache) GetProfile(ctx context.Context, userID string) (*CachedProfile, Lookup, error) {
	var profile CachedProfile
	lookup, err := c.cache.Get(ctx, userID, &profile)
	if err != nil || lookup != Hit {
		return nil, lookup, err
	}
	return &profile, Hit, nil
}

func (c *RedisProfileCache) SetProfile(ctx context.Context, userID string, profile *CachedProfile) error {
	if profile == nil {
		return c.cache.Set(ctx, userID, nil)
	}
	return c.cache.Set(ctx, userID, profile)
}

func (c *RedisProfileCache) DeleteProfile(ctx context.Context, userID string) error {
	return c.cache.Delete(ctx, userID)
}
