package processor

import (
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/editor"
	"ai-portfolio-go/internal/storage"
)

// Components 聚合服务依赖，便于集中管理和测试替换
type Components struct {
	Generator PortfolioGenerator
	Extractor TextExtractor // 可选，处理PDF上传

	// 以下均为可选
	Archive   storage.InputArchive
	Snapshots storage.SnapshotStore
	Publisher storage.EventPublisher
}

// ComponentOpt 组件选项
type ComponentOpt func(*Components)

// WithGenerator 设置生成器
func WithGenerator(g PortfolioGenerator) ComponentOpt {
	return func(c *Components) { c.Generator = g }
}

// WithExtractor 设置PDF文本提取器
func WithExtractor(e TextExtractor) ComponentOpt {
	return func(c *Components) { c.Extractor = e }
}

// WithArchive 设置输入归档
func WithArchive(a storage.InputArchive) ComponentOpt {
	return func(c *Components) { c.Archive = a }
}

// WithSnapshots 设置快照存储
func WithSnapshots(s storage.SnapshotStore) ComponentOpt {
	return func(c *Components) { c.Snapshots = s }
}

// WithPublisher 设置事件发布器
func WithPublisher(p storage.EventPublisher) ComponentOpt {
	return func(c *Components) { c.Publisher = p }
}

// WithStorage 从存储管理器装配可选组件
func WithStorage(s *storage.Storage) ComponentOpt {
	return func(c *Components) {
		if s == nil {
			return
		}
		c.Archive = s.InputArchive()
		c.Snapshots = s.SnapshotStore()
		c.Publisher = s.EventPublisher()
	}
}

// Settings 纯配置项
type Settings struct {
	EditorOptions []editor.Option
	Logger        *zerolog.Logger
}

// SettingOpt 设置选项
type SettingOpt func(*Settings)

// WithEditorOptions 新建编辑器时使用的选项
func WithEditorOptions(opts ...editor.Option) SettingOpt {
	return func(s *Settings) { s.EditorOptions = append(s.EditorOptions, opts...) }
}

// WithLogger 设置日志记录器
func WithLogger(l zerolog.Logger) SettingOpt {
	return func(s *Settings) { s.Logger = &l }
}
