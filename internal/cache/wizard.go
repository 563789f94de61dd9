package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"KVisit/internal/wizard"
	"KVisit/storage/redis"
)

// 进行中的向导会话。每次写入都会刷新 TTL，长时间不操作的会话自然过期
const (
	wizardPrefix = "onboarding:wizard"
)

var (
	ErrWizardSessionNotFound = errors.New("wizard session not found")
	ErrWizardSessionCorrupt  = errors.New("wizard session corrupt")
)

// WizardSession 会话快照和归属
type WizardSession struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Snapshot  wizard.Snapshot `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WizardStore 会话存储
type WizardStore interface {
	SaveSession(ctx context.Context, session *WizardSession) error
	LoadSession(ctx context.Context, id string) (*WizardSession, error)
	DeleteSession(ctx context.Context, id string) error
}

// RedisWizardStore 以 JSON 存储会话
type RedisWizardStore struct {
	ttl time.Duration
}

func NewRedisWizardStore(ttl time.Duration) *RedisWizardStore {
	return &RedisWizardStore{ttl: ttl}
}

func (s *RedisWizardStore) SaveSession(ctx context.Context, session *WizardSession) error {
	b, err := EncodeWizardSession(session)
	if err != nil {
		return err
	}
	return redis.Client().Set(ctx, redis.Key(wizardPrefix, session.ID), b, s.ttl).Err()
}

func (s *RedisWizardStore) LoadSession(ctx context.Context, id string) (*WizardSession, error) {
	data, err := redis.Client().Get(ctx, redis.Key(wizardPrefix, id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrWizardSessionNotFound
		}
		return nil, fmt.Errorf("failed to load wizard session: %w", err)
	}
	return DecodeWizardSession(data)
}

func (s *RedisWizardStore) DeleteSession(ctx context.Context, id string) error {
	return redis.Client().Del(ctx, redis.Key(wizardPrefix, id)).Err()
}

// EncodeWizardSession 会话的存储格式，Redis 与其他实现共用
func EncodeWizardSession(session *WizardSession) ([]byte, error) {
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("wizard session id is required")
	}
	b, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wizard session: %w", err)
	}
	return b, nil
}

// DecodeWizardSession 无法解析或缺少表单数据时返回 ErrWizardSessionCorrupt
func DecodeWizardSession(data []byte) (*WizardSession, error) {
	var session WizardSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWizardSessionCorrupt, err)
	}
	if session.Snapshot.Data == nil {
		return nil, fmt.Errorf("%w: missing form data", ErrWizardSessionCorrupt)
	}
	return &session, nil
}
