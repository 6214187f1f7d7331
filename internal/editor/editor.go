package editor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/types"
)

// Source 权威记录的持有者
type Source interface {
	// Snapshot 返回当前权威记录及其版本号，调用方不得修改返回值。
	// 尚未加载时返回 types.ErrRecordNotLoaded
	Snapshot() (*types.PortfolioRecord, uint64, error)
	// Replace 原子替换权威记录，返回新版本号
	Replace(ctx context.Context, record *types.PortfolioRecord) (uint64, error)
}

// Editor 管理可编辑工作副本。
// 工作副本从 Source 派生，Source 版本变化（外部替换）时重新派生并丢弃未保存的修改
type Editor struct {
	mu sync.Mutex

	source      Source
	working     *types.PortfolioRecord
	baseVersion uint64
	derived     bool

	saved          bool
	savedGen       uint64
	savedTimer     *time.Timer
	savedIndicator time.Duration

	env    applyEnv
	logger zerolog.Logger
}

// Option 编辑器选项
type Option func(*Editor)

// WithSaveIndicatorDuration 设置"已保存"提示的持续时间
func WithSaveIndicatorDuration(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.savedIndicator = d
		}
	}
}

// WithMaxImageBytes 设置图片大小上限
func WithMaxImageBytes(n int64) Option {
	return func(e *Editor) {
		if n > 0 {
			e.env.maxImageBytes = n
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) {
		e.logger = l
	}
}

// New 创建绑定到 source 的编辑器
func New(source Source, opts ...Option) *Editor {
	e := &Editor{
		source:         source,
		savedIndicator: constants.SaveIndicatorDuration,
		env:            applyEnv{maxImageBytes: constants.MaxImageBytes},
		logger:         logger.Component("editor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// syncLocked 在 Source 版本变化时重新派生工作副本，调用方须持有锁
func (e *Editor) syncLocked() error {
	snap, version, err := e.source.Snapshot()
	if err != nil {
		e.working = nil
		e.derived = false
		return err
	}
	if e.derived && version == e.baseVersion {
		return nil
	}
	if e.derived {
		e.logger.Info().Uint64("from", e.baseVersion).Uint64("to", version).Msg("权威记录已变化，重置工作副本")
	}
	working := snap.Clone()
	working.Normalize()
	e.working = working
	e.baseVersion = version
	e.derived = true
	return nil
}

// Working 返回工作副本的深拷贝
func (e *Editor) Working() (*types.PortfolioRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.syncLocked(); err != nil {
		return nil, err
	}
	return e.working.Clone(), nil
}

// Apply 执行一次编辑操作。失败时工作副本保持不变
func (e *Editor) Apply(op Operation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.syncLocked(); err != nil {
		return err
	}

	next := e.working.CloneForSection(op.Section())
	if err := op.apply(next, &e.env); err != nil {
		e.logger.Debug().Err(err).Str("section", string(op.Section())).Msg("编辑操作被拒绝")
		return err
	}
	e.working = next
	return nil
}

// Commit 用工作副本原子替换权威记录，并点亮"已保存"提示
func (e *Editor) Commit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.syncLocked(); err != nil {
		return err
	}

	version, err := e.source.Replace(ctx, e.working.Clone())
	if err != nil {
		return err
	}
	// 自己的提交不视为外部变化
	e.baseVersion = version
	e.raiseSavedLocked()
	e.logger.Info().Uint64("version", version).Msg("作品集已保存")
	return nil
}

func (e *Editor) raiseSavedLocked() {
	e.saved = true
	e.savedGen++
	gen := e.savedGen
	if e.savedTimer != nil {
		e.savedTimer.Stop()
	}
	e.savedTimer = time.AfterFunc(e.savedIndicator, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.savedGen == gen {
			e.saved = false
		}
	})
}

// SavedRecently 最近一次提交后的提示是否仍在显示
func (e *Editor) SavedRecently() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saved
}

// Close 停止提示计时器
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.savedTimer != nil {
		e.savedTimer.Stop()
	}
	e.saved = false
}
