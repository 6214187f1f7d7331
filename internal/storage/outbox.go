package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-portfolio-go/internal/storage/models"
)

// EventTypePortfolioCommitted 发件箱中的提交事件类型
const EventTypePortfolioCommitted = "portfolio.committed"

// OutboxPublisher 把提交事件写入 MySQL 发件箱，由 outbox.MessageRelay 异步投递
type OutboxPublisher struct {
	mysql      *MySQL
	exchange   string
	routingKey string
}

// NewOutboxPublisher 创建发件箱发布器
func NewOutboxPublisher(mysql *MySQL, exchange, routingKey string) *OutboxPublisher {
	return &OutboxPublisher{mysql: mysql, exchange: exchange, routingKey: routingKey}
}

// NewOutboxMessage 构造待发布的发件箱行
func NewOutboxMessage(event *PortfolioCommittedEvent, exchange, routingKey string) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return &models.OutboxMessage{
		EventID:          event.EventID,
		EventType:        EventTypePortfolioCommitted,
		Payload:          datatypes.JSON(payload),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}

// PublishCommitted 写入发件箱
func (p *OutboxPublisher) PublishCommitted(ctx context.Context, event *PortfolioCommittedEvent) error {
	msg, err := NewOutboxMessage(event, p.exchange, p.routingKey)
	if err != nil {
		return err
	}
	if err := p.mysql.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("写入发件箱失败: %w", err)
	}
	return nil
}

// ProcessOutboxBatch 在一个事务内锁定一批待发布消息，逐条交给 fn 处理后保存其状态。
// FOR UPDATE SKIP LOCKED 保证多实例不会重复拾取同一条消息
func (m *MySQL) ProcessOutboxBatch(ctx context.Context, limit int, fn func(context.Context, *models.OutboxMessage) error) (int, error) {
	var messages []models.OutboxMessage
	processed := 0

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", models.OutboxStatusPending).
			Order("created_at asc").
			Limit(limit).
			Find(&messages).Error
		if err != nil {
			return fmt.Errorf("查询待发布消息失败: %w", err)
		}

		for i := range messages {
			if err := fn(ctx, &messages[i]); err != nil {
				return err
			}
			// 状态更新失败时整个事务回滚，消息在下一轮被重新拾取
			if err := tx.Save(&messages[i]).Error; err != nil {
				return fmt.Errorf("更新发件箱消息 %d 失败: %w", messages[i].ID, err)
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}
