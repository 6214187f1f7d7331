package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/logger"
)

// EventPublisher 发布作品集事件
type EventPublisher interface {
	PublishCommitted(ctx context.Context, event *PortfolioCommittedEvent) error
}

var _ EventPublisher = (*RabbitMQ)(nil)

// RabbitMQ 提供消息发布功能
type RabbitMQ struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	mu          sync.Mutex // 保护 channel 和 exchangeMap
	exchangeMap map[string]bool
	exchange    string
	routingKey  string
	logger      zerolog.Logger
}

// NewRabbitMQ 连接 RabbitMQ 并声明事件交换机
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道: %w", err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		channel:     ch,
		exchangeMap: make(map[string]bool),
		exchange:    cfg.EventsExchange,
		routingKey:  cfg.CommittedRoutingKey,
		logger:      logger.Component("rabbitmq"),
	}
	if mq.exchange == "" {
		mq.exchange = constants.PortfolioEventsExchange
	}
	if mq.routingKey == "" {
		mq.routingKey = constants.CommittedRoutingKey
	}

	if err := mq.EnsureExchange(mq.exchange, amqp.ExchangeTopic, true); err != nil {
		mq.Close()
		return nil, err
	}

	mq.logger.Info().Str("exchange", mq.exchange).Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// Close 关闭通道和连接
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		_ = r.channel.Close()
	}
	return r.conn.Close()
}

// channelLocked 返回可用通道，已关闭时重建。调用方持有 r.mu
func (r *RabbitMQ) channelLocked() (*amqp.Channel, error) {
	if r.channel != nil && !r.channel.IsClosed() {
		return r.channel, nil
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("无法获取RabbitMQ通道: %w", err)
	}
	r.channel = ch
	return ch, nil
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch, err := r.channelLocked()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}
	r.exchangeMap[exchangeName] = true
	return nil
}

// PublishJSON 以持久化消息发布JSON
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey, messageID string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}
	return r.PublishRaw(ctx, exchangeName, routingKey, messageID, body)
}

// PublishRaw 以持久化消息发布已序列化的JSON
func (r *RabbitMQ) PublishRaw(ctx context.Context, exchangeName, routingKey, messageID string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, err := r.channelLocked()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// Exchange 提交事件使用的交换机
func (r *RabbitMQ) Exchange() string { return r.exchange }

// RoutingKey 提交事件使用的路由键
func (r *RabbitMQ) RoutingKey() string { return r.routingKey }

// PublishCommitted 发布 portfolio.committed 事件
func (r *RabbitMQ) PublishCommitted(ctx context.Context, event *PortfolioCommittedEvent) error {
	if err := r.PublishJSON(ctx, r.exchange, r.routingKey, event.EventID, event); err != nil {
		return err
	}
	r.logger.Debug().Str("event_id", event.EventID).Uint64("version", event.Version).Msg("已发布作品集提交事件")
	return nil
}
