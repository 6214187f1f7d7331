package storage

import (
	"time"

	"ai-portfolio-go/internal/types"
)

// PortfolioCommittedEvent 作品集提交事件，交给导出服务生成静态站点
type PortfolioCommittedEvent struct {
	EventID     string                 `json:"event_id"`
	Version     uint64                 `json:"version"`
	Source      string                 `json:"source"` // generate 或 commit
	CommittedAt time.Time              `json:"committed_at"`
	Record      *types.PortfolioRecord `json:"record"`
}
