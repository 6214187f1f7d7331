package constants

import "time"

const (
	// 编辑相关常量
	MaxImageBytes         = 2 * 1024 * 1024 // 上传图片大小上限 2MiB
	SaveIndicatorDuration = 2 * time.Second // "已保存"提示的持续时间
	PresentSentinel       = "Present"       // 进行中经历的结束日期
	DefaultSkillLevel     = 80
	MinSkillLevel         = 0
	MaxSkillLevel         = 100

	// 生成相关常量
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultQwenModel   = "qwen-plus"
	DefaultLLMTimeout  = 90 * time.Second

	// 消息队列与对象存储
	PortfolioEventsExchange = "portfolio.events"
	CommittedRoutingKey     = "portfolio.committed"
	InputArchivePrefix      = "inputs/"
	InputArchiveBucket      = "portfolio-inputs"

	// 会话默认有效期
	DefaultSessionTTL = 12 * time.Hour
)
