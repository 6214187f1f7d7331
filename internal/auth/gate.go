package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/types"
)

// State 会话状态
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Gate 管理入口的登录门禁。凭据固定，只作为界面入口控制
type Gate struct {
	username string
	password string
	ttl      time.Duration
	store    SessionStore
	now      func() time.Time
	logger   zerolog.Logger
}

// GateOption 门禁选项
type GateOption func(*Gate)

// WithSessionTTL 设置会话有效期，0 表示不过期
func WithSessionTTL(ttl time.Duration) GateOption {
	return func(g *Gate) {
		if ttl >= 0 {
			g.ttl = ttl
		}
	}
}

// WithSessionStore 设置会话存储
func WithSessionStore(store SessionStore) GateOption {
	return func(g *Gate) {
		if store != nil {
			g.store = store
		}
	}
}

// WithGateClock 替换时钟
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate 创建门禁，用户名或密码为空时使用默认凭据
func NewGate(username, password string, opts ...GateOption) *Gate {
	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = "password123"
	}
	g := &Gate{
		username: username,
		password: password,
		ttl:      constants.DefaultSessionTTL,
		store:    NewInMemorySessionStore(),
		now:      time.Now,
		logger:   logger.Component("auth"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Login 凭据正确时创建会话；错误时返回 types.ErrInvalidCredentials 且不创建会话
func (g *Gate) Login(ctx context.Context, username, password string) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
	if !userOK || !passOK {
		g.logger.Warn().Str("username", username).Msg("管理员登录失败")
		return nil, types.ErrInvalidCredentials
	}

	now := g.now()
	sess := &Session{
		Token:     uuid.NewString(),
		Username:  g.username,
		CreatedAt: now,
	}
	if g.ttl > 0 {
		sess.ExpiresAt = now.Add(g.ttl)
	}
	if err := g.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("保存会话失败: %w", err)
	}

	g.logger.Info().Str("username", username).Msg("管理员登录成功")
	return sess, nil
}

// Logout 无条件结束会话，可重复调用
func (g *Gate) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := g.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	return nil
}

// State 返回 token 对应的会话状态，存储出错时按未登录处理
func (g *Gate) State(ctx context.Context, token string) State {
	token = strings.TrimSpace(token)
	if token == "" {
		return StateAnonymous
	}
	sess, err := g.store.Get(ctx, token)
	if err != nil {
		g.logger.Error().Err(err).Msg("读取会话失败")
		return StateAnonymous
	}
	if sess == nil {
		return StateAnonymous
	}
	if !sess.ExpiresAt.IsZero() && !g.now().Before(sess.ExpiresAt) {
		return StateAnonymous
	}
	return StateAuthenticated
}
