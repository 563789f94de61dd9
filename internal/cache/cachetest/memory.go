// Package cachetest 提供 cache 包接口的进程内实现，供服务、处理器和消费者的测试使用。
// 会话经过与 Redis 实现相同的编解码存取。
package cachetest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"KVisit/internal/cache"
)

var (
	_ cache.Locker        = (*Locker)(nil)
	_ cache.WizardStore   = (*WizardStore)(nil)
	_ cache.ProfileCache  = (*ProfileCache)(nil)
	_ cache.MessageMarker = (*MessageMarker)(nil)
)

// Locker 进程内锁，不过期
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

func (l *Locker) TryLock(_ context.Context, key string, _ time.Duration) (cache.UnlockFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		return nil
	}, true, nil
}

// WizardStore 进程内会话存储，不过期
type WizardStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewWizardStore() *WizardStore {
	return &WizardStore{sessions: make(map[string][]byte)}
}

func (s *WizardStore) SaveSession(_ context.Context, session *cache.WizardSession) error {
	b, err := cache.EncodeWizardSession(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[session.ID] = b
	s.mu.Unlock()
	return nil
}

func (s *WizardStore) LoadSession(_ context.Context, id string) (*cache.WizardSession, error) {
	s.mu.Lock()
	b, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, cache.ErrWizardSessionNotFound
	}
	return cache.DecodeWizardSession(b)
}

func (s *WizardStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Len 当前会话数
func (s *WizardStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ProfileCache 进程内完成记录缓存
type ProfileCache struct {
	mu       sync.Mutex
	profiles map[string][]byte
}

func NewProfileCache() *ProfileCache {
	return &ProfileCache{profiles: make(map[string][]byte)}
}

func (c *ProfileCache) GetProfile(_ context.Context, userID string) (*cache.CachedProfile, cache.Lookup, error) {
	c.mu.Lock()
	b, ok := c.profiles[userID]
	c.mu.Unlock()
	if !ok {
		return nil, cache.Miss, nil
	}
	if b == nil {
		return nil, cache.Empty, nil
	}
	var profile cache.CachedProfile
	if err := json.Unmarshal(b, &profile); err != nil {
		return nil, cache.Miss, err
	}
	return &profile, cache.Hit, nil
}

func (c *ProfileCache) SetProfile(_ context.Context, userID string, profile *cache.CachedProfile) error {
	var b []byte
	if profile != nil {
		var err error
		if b, err = json.Marshal(profile); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.profiles[userID] = b
	c.mu.Unlock()
	return nil
}

func (c *ProfileCache) DeleteProfile(_ context.Context, userID string) error {
	c.mu.Lock()
	delete(c.profiles, userID)
	c.mu.Unlock()
	return nil
}

// MessageMarker 进程内消息标记
type MessageMarker struct {
	mu    sync.Mutex
	marks map[string]string
}

func NewMessageMarker() *MessageMarker {
	return &MessageMarker{marks: make(map[string]string)}
}

func (m *MessageMarker) TryMarkMessageProcessing(_ context.Context, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.marks[messageID]; ok {
		return false, nil
	}
	m.marks[messageID] = "processing"
	return true, nil
}

func (m *MessageMarker) UnmarkMessageProcessing(_ context.Context, messageID string) error {
	m.mu.Lock()
	delete(m.marks, messageID)
	m.mu.Unlock()
	return nil
}

func (m *MessageMarker) MarkMessageProcessed(_ context.Context, messageID string) error {
	m.mu.Lock()
	m.marks[messageID] = "completed"
	m.mu.Unlock()
	return nil
}

// State 标记值，未标记时为空
func (m *MessageMarker) State(messageID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks[messageID]
}
