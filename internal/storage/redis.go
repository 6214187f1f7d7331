package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/tracing"
)

// ErrNotFound key 不存在
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("ai-portfolio-go/storage/redis")

// Redis 封装 Redis 客户端
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedis 创建 Redis 连接并挂载 OpenTelemetry 钩子
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	}
	client := redis.NewClient(opt)

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// NewRedisFromClient 包装已有客户端，测试中配合 miniredis 使用
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{Client: client, config: &config.RedisConfig{}}
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// startSpan 为业务级 Redis 操作创建 span，底层命令由 redisotel 记录
func (r *Redis) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	ctx, span := redisTracer.Start(ctx, "Redis."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.operation", op),
		tracing.SafeString("db.redis.key", key, tracing.MaxKeyLength),
	)
	return ctx, span
}

// Get 获取键的值，不存在时返回 ErrNotFound
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}
	ctx, span := r.startSpan(ctx, "GET", key)
	defer span.End()

	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			return "", ErrNotFound
		}
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return "", err
	}
	span.SetAttributes(attribute.Int("db.redis.value_length", len(val)))
	span.SetStatus(codes.Ok, "")
	return val, nil
}

// Set 设置键的值，expiration 为 0 表示不过期
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	ctx, span := r.startSpan(ctx, "SET", key)
	defer span.End()
	if expiration > 0 {
		span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
	}

	if err := r.Client.Set(ctx, key, value, expiration).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Del 删除键
func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if len(keys) == 0 {
		return nil
	}
	ctx, span := r.startSpan(ctx, "DEL", keys[0])
	defer span.End()

	if err := r.Client.Del(ctx, keys...).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return err
	}
	return nil
}

// Update 在 WATCH 事务中读取-修改-写回单个键，冲突时重试。
// fn 收到当前值（不存在时 exists 为 false），返回新值
func (r *Redis) Update(ctx context.Context, key string, maxRetries int, fn func(current string, exists bool) (string, error)) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	ctx, span := r.startSpan(ctx, "UPDATE", key)
	defer span.End()

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = r.Client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		span.AddEvent("watch_conflict", trace.WithAttributes(attribute.Int("attempt", attempt+1)))
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
