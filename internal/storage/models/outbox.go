package models

import (
	"time"

	"gorm.io/datatypes"
)

// 发件箱消息状态
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 待异步发布的事件。与快照写入同库，由中继服务投递到消息队列
type OutboxMessage struct {
	ID               uint64         `gorm:"primaryKey;autoIncrement"`
	EventID          string         `gorm:"type:char(36);not null;uniqueIndex"`
	EventType        string         `gorm:"type:varchar(64);not null"`
	Payload          datatypes.JSON `gorm:"type:json;not null"`
	TargetExchange   string         `gorm:"type:varchar(255);not null"`
	TargetRoutingKey string         `gorm:"type:varchar(255);not null"`
	Status           string         `gorm:"type:varchar(20);default:'PENDING';not null;index:idx_outbox_status_created_at"`
	RetryCount       int            `gorm:"default:0"`
	CreatedAt        time.Time      `gorm:"index:idx_outbox_status_created_at,sort:asc"`
	ProcessedAt      *time.Time
	ErrorMessage     string `gorm:"type:text"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}
