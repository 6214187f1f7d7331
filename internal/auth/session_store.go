package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/storage"
)

// Session 已登录的管理员会话
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore 会话存储
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	// Get 会话不存在或已过期时返回 (nil, nil)
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// InMemorySessionStore 进程内会话存储，读取时淘汰过期会话
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewInMemorySessionStore 创建进程内会话存储
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Save 保存会话副本
func (s *InMemorySessionStore) Save(_ context.Context, sess *Session) error {
	cp := *sess
	s.mu.Lock()
	s.sessions[sess.Token] = &cp
	s.mu.Unlock()
	return nil
}

// Get 读取会话
func (s *InMemorySessionStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// Delete 删除会话，不存在时无操作
func (s *InMemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// RedisSessionStore 以 app:auth:session:{token} 保存会话，过期由 Redis TTL 负责
type RedisSessionStore struct {
	redis *storage.Redis
}

// NewRedisSessionStore 创建 Redis 会话存储
func NewRedisSessionStore(r *storage.Redis) *RedisSessionStore {
	return &RedisSessionStore{redis: r}
}

func sessionKey(token string) string {
	return fmt.Sprintf(constants.KeyAuthSession, token)
}

// Save 写入会话并设置剩余有效期
func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	var ttl time.Duration
	if !sess.ExpiresAt.IsZero() {
		ttl = time.Until(sess.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	return s.redis.Set(ctx, sessionKey(sess.Token), string(data), ttl)
}

// Get 读取会话
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	raw, err := s.redis.Get(ctx, sessionKey(token))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// 损坏的会话视为未登录
		_ = s.redis.Del(ctx, sessionKey(token))
		return nil, nil
	}
	return &sess, nil
}

// Delete 删除会话
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.redis.Del(ctx, sessionKey(token))
}

var (
	_ SessionStore = (*InMemorySessionStore)(nil)
	_ SessionStore = (*RedisSessionStore)(nil)
)
