package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/tracing"
	"ai-portfolio-go/internal/types"
)

// 留言校验提示
const (
	MsgFillAllFields = "Please fill out all fields."
	MsgInvalidEmail  = "Please enter a valid email address."
)

// MessageDateLayout 留言时间格式，UTC 毫秒精度
const MessageDateLayout = "2006-01-02T15:04:05.000Z"

// 提交时遇到写冲突的最大重试次数
const messageLogMaxRetries = 5

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// MessageLog 访客留言日志，只追加，最新在前
type MessageLog interface {
	Submit(ctx context.Context, name, email, message string) (*types.ContactMessage, error)
	ListAll(ctx context.Context) ([]types.ContactMessage, error)
	ClearAll(ctx context.Context) error
}

// MessageLogOption 留言日志选项
type MessageLogOption func(*messageLogOptions)

type messageLogOptions struct {
	now    func() time.Time
	logger zerolog.Logger
}

// WithClock 替换时钟
func WithClock(now func() time.Time) MessageLogOption {
	return func(o *messageLogOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMessageLogLogger 设置日志记录器
func WithMessageLogLogger(l zerolog.Logger) MessageLogOption {
	return func(o *messageLogOptions) {
		o.logger = l
	}
}

func buildMessageLogOptions(opts []MessageLogOption) messageLogOptions {
	o := messageLogOptions{
		now:    time.Now,
		logger: logger.Component("message_log"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ValidateContactMessage 校验三个字段非空且邮箱格式合法
func ValidateContactMessage(name, email, message string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(message) == "" {
		return types.NewValidationError("", MsgFillAllFields)
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return types.NewValidationError("email", MsgInvalidEmail)
	}
	return nil
}

func newContactMessage(name, email, message string, now time.Time) types.ContactMessage {
	return types.ContactMessage{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Message: strings.TrimSpace(message),
		Date:    now.UTC().Format(MessageDateLayout),
	}
}

// InMemoryMessageLog 进程内实现
type InMemoryMessageLog struct {
	mu       sync.Mutex
	messages []types.ContactMessage
	opts     messageLogOptions
}

// NewInMemoryMessageLog 创建进程内留言日志
func NewInMemoryMessageLog(opts ...MessageLogOption) *InMemoryMessageLog {
	return &InMemoryMessageLog{opts: buildMessageLogOptions(opts)}
}

// Submit 校验并把留言插入到最前
func (l *InMemoryMessageLog) Submit(_ context.Context, name, email, message string) (*types.ContactMessage, error) {
	if err := ValidateContactMessage(name, email, message); err != nil {
		return nil, err
	}
	msg := newContactMessage(name, email, message, l.opts.now())

	l.mu.Lock()
	l.messages = append([]types.ContactMessage{msg}, l.messages...)
	l.mu.Unlock()
	return &msg, nil
}

// ListAll 返回副本
func (l *InMemoryMessageLog) ListAll(_ context.Context) ([]types.ContactMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.ContactMessage, len(l.messages))
	copy(out, l.messages)
	return out, nil
}

// ClearAll 清空日志
func (l *InMemoryMessageLog) ClearAll(_ context.Context) error {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
	return nil
}

// RedisMessageLog 把整个留言列表作为 JSON 数组存放在单个键中
type RedisMessageLog struct {
	redis *Redis
	key   string
	opts  messageLogOptions
}

// NewRedisMessageLog 创建基于 Redis 的留言日志
func NewRedisMessageLog(r *Redis, opts ...MessageLogOption) *RedisMessageLog {
	return &RedisMessageLog{
		redis: r,
		key:   constants.KeyContactMessages,
		opts:  buildMessageLogOptions(opts),
	}
}

// Submit 校验后在 WATCH 事务中把留言插入到最前
func (l *RedisMessageLog) Submit(ctx context.Context, name, email, message string) (*types.ContactMessage, error) {
	if err := ValidateContactMessage(name, email, message); err != nil {
		return nil, err
	}
	msg := newContactMessage(name, email, message, l.opts.now())
	trace.SpanFromContext(ctx).SetAttributes(tracing.SafeString("contact.email", email, tracing.DefaultMaxLength))

	err := l.redis.Update(ctx, l.key, messageLogMaxRetries, func(current string, exists bool) (string, error) {
		existing := l.decode(current, exists)
		next := append([]types.ContactMessage{msg}, existing...)
		data, err := json.Marshal(next)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
	if err != nil {
		return nil, fmt.Errorf("保存留言失败: %w", err)
	}

	l.opts.logger.Info().Str("email", msg.Email).Msg("收到新留言")
	return &msg, nil
}

// ListAll 键不存在或内容损坏时返回空列表
func (l *RedisMessageLog) ListAll(ctx context.Context) ([]types.ContactMessage, error) {
	raw, err := l.redis.Get(ctx, l.key)
	if errors.Is(err, ErrNotFound) {
		return []types.ContactMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取留言失败: %w", err)
	}
	return l.decode(raw, true), nil
}

// ClearAll 删除整个键
func (l *RedisMessageLog) ClearAll(ctx context.Context) error {
	if err := l.redis.Del(ctx, l.key); err != nil {
		return fmt.Errorf("清空留言失败: %w", err)
	}
	l.opts.logger.Info().Msg("留言日志已清空")
	return nil
}

func (l *RedisMessageLog) decode(raw string, exists bool) []types.ContactMessage {
	if !exists || raw == "" {
		return []types.ContactMessage{}
	}
	var messages []types.ContactMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		l.opts.logger.Warn().Err(err).Str("key", l.key).Msg("留言数据损坏，按空列表处理")
		return []types.ContactMessage{}
	}
	if messages == nil {
		messages = []types.ContactMessage{}
	}
	return messages
}

var (
	_ MessageLog = (*InMemoryMessageLog)(nil)
	_ MessageLog = (*RedisMessageLog)(nil)
)
