package outbox // 发件箱模式（Outbox Pattern）的中继实现

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/storage/models"
	"ai-portfolio-go/internal/tracing"
)

const (
	defaultPollingInterval = 5 * time.Second // 默认轮询 outbox 表的间隔
	defaultBatchSize       = 10              // 每次轮询处理的消息批量大小
	maxRetryCount          = 5               // 消息发布失败的最大重试次数
)

// BatchStore 发件箱存储，由 storage.MySQL 实现
type BatchStore interface {
	ProcessOutboxBatch(ctx context.Context, limit int, fn func(context.Context, *models.OutboxMessage) error) (int, error)
}

// Publisher 消息代理，由 storage.RabbitMQ 实现
type Publisher interface {
	PublishRaw(ctx context.Context, exchange, routingKey, messageID string, body []byte) error
}

// MessageRelay 轮询 outbox 表并将消息发布到消息代理
type MessageRelay struct {
	store           BatchStore
	publisher       Publisher
	logger          zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	now             func() time.Time
	tracer          trace.Tracer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option 中继选项
type Option func(*MessageRelay)

// WithPollingInterval 设置轮询间隔
func WithPollingInterval(d time.Duration) Option {
	return func(r *MessageRelay) {
		if d > 0 {
			r.pollingInterval = d
		}
	}
}

// WithBatchSize 设置批量大小
func WithBatchSize(n int) Option {
	return func(r *MessageRelay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithRelayLogger 设置日志记录器
func WithRelayLogger(l zerolog.Logger) Option {
	return func(r *MessageRelay) { r.logger = l }
}

// WithRelayClock 设置时钟，用于测试
func WithRelayClock(now func() time.Time) Option {
	return func(r *MessageRelay) { r.now = now }
}

// NewMessageRelay 创建一个新的 MessageRelay 实例
func NewMessageRelay(store BatchStore, publisher Publisher, opts ...Option) *MessageRelay {
	r := &MessageRelay{
		store:           store,
		publisher:       publisher,
		logger:          logger.Component("outbox_relay"),
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		now:             time.Now,
		tracer:          tracing.Tracer("outbox"),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 在后台开始轮询
func (r *MessageRelay) Start(ctx context.Context) {
	r.logger.Info().Dur("interval", r.pollingInterval).Msg("MessageRelay 启动")
	ticker := time.NewTicker(r.pollingInterval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				r.logger.Info().Msg("MessageRelay 已停止")
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.ProcessPending(ctx); err != nil {
					r.logger.Error().Err(err).Msg("处理待发布消息失败")
				}
			}
		}
	}()
}

// Stop 停止轮询并等待当前批次结束，可重复调用
func (r *MessageRelay) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}

// ProcessPending 处理一批待发布消息，返回处理的条数
func (r *MessageRelay) ProcessPending(ctx context.Context) (int, error) {
	var span trace.Span
	n, err := r.store.ProcessOutboxBatch(ctx, r.batchSize, func(ctx context.Context, msg *models.OutboxMessage) error {
		// 空轮询不创建 span
		if span == nil {
			ctx, span = r.tracer.Start(ctx, "outbox.ProcessBatch")
		}
		r.deliver(ctx, msg)
		return nil
	})
	if span != nil {
		span.SetAttributes(attribute.Int("messaging.batch.message_count", n))
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
		}
		span.End()
	}
	return n, err
}

// deliver 发布单条消息并更新其状态字段，由调用方持久化
func (r *MessageRelay) deliver(ctx context.Context, msg *models.OutboxMessage) {
	err := r.publisher.PublishRaw(ctx, msg.TargetExchange, msg.TargetRoutingKey, msg.EventID, msg.Payload)
	if err != nil {
		msg.RetryCount++
		msg.ErrorMessage = err.Error()
		if msg.RetryCount >= maxRetryCount {
			msg.Status = models.OutboxStatusFailed
		}
		r.logger.Warn().Err(err).Str("event_id", msg.EventID).Int("retries", msg.RetryCount).Msg("发布发件箱消息失败")
		return
	}
	now := r.now()
	msg.Status = models.OutboxStatusSent
	msg.ProcessedAt = &now
	msg.ErrorMessage = ""
}
