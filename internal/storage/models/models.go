package models

import (
	"time"

	"gorm.io/datatypes"
)

// 快照来源
const (
	SnapshotSourceGenerate = "generate"
	SnapshotSourceCommit   = "commit"
)

// PortfolioSnapshot 已提交作品集记录的快照，最新一条即当前记录
type PortfolioSnapshot struct {
	SnapshotID  string         `gorm:"type:char(36);primaryKey"`
	Version     uint64         `gorm:"not null;index:idx_portfolio_snapshots_version"`
	Source      string         `gorm:"type:varchar(20);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`
	PayloadSize int            `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_portfolio_snapshots_created_at"`
}

func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}
