package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-portfolio-go/internal/editor"
	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/parser"
	"ai-portfolio-go/internal/storage"
	"ai-portfolio-go/internal/tracing"
	"ai-portfolio-go/internal/types"
)

// PDF 相关提示
const (
	MsgPDFUnsupported = "PDF upload is not available."
	MsgPDFNoText      = "Could not extract any text from the uploaded PDF."
)

// PortfolioService 持有权威作品集记录的应用上下文。
// 实现 editor.Source，所有替换都会递增版本号并触发替换钩子
type PortfolioService struct {
	mu      sync.RWMutex
	record  *types.PortfolioRecord
	version uint64

	generating atomic.Bool

	hooksMu sync.RWMutex
	hooks   []ReplaceHook

	components Components
	settings   Settings
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewPortfolioService 创建服务。配置了快照存储或事件发布器时自动注册对应钩子
func NewPortfolioService(compOpts []ComponentOpt, setOpts ...SettingOpt) (*PortfolioService, error) {
	var comps Components
	for _, opt := range compOpts {
		opt(&comps)
	}
	if comps.Generator == nil {
		return nil, errors.New("portfolio generator is required")
	}
	var settings Settings
	for _, opt := range setOpts {
		opt(&settings)
	}

	s := &PortfolioService{
		components: comps,
		settings:   settings,
		logger:     logger.Component("portfolio_service"),
		tracer:     tracing.Tracer("processor"),
	}
	if settings.Logger != nil {
		s.logger = *settings.Logger
	}

	if comps.Snapshots != nil {
		s.OnReplace(s.persistSnapshot)
	}
	if comps.Publisher != nil {
		s.OnReplace(s.publishCommitted)
	}
	return s, nil
}

// Snapshot 实现 editor.Source。返回值为共享引用，调用方不得修改
func (s *PortfolioService) Snapshot() (*types.PortfolioRecord, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return nil, s.version, types.ErrRecordNotLoaded
	}
	return s.record, s.version, nil
}

// Current 返回权威记录的深拷贝
func (s *PortfolioService) Current() (*types.PortfolioRecord, uint64, error) {
	rec, version, err := s.Snapshot()
	if err != nil {
		return nil, version, err
	}
	return rec.Clone(), version, nil
}

// Replace 实现 editor.Source，来自编辑器的提交
func (s *PortfolioService) Replace(ctx context.Context, record *types.PortfolioRecord) (uint64, error) {
	return s.replace(ctx, record, SourceCommit)
}

func (s *PortfolioService) replace(ctx context.Context, record *types.PortfolioRecord, source string) (uint64, error) {
	if record == nil {
		return 0, errors.New("record cannot be nil")
	}
	ctx, span := s.tracer.Start(ctx, "PortfolioService.Replace")
	defer span.End()

	owned := record.Clone()
	owned.Normalize()

	s.mu.Lock()
	s.record = owned
	s.version++
	version := s.version
	s.mu.Unlock()

	span.SetAttributes(attribute.String("replace.source", source), attribute.Int64("replace.version", int64(version)))
	s.logger.Info().Str("source", source).Uint64("version", version).Msg("权威记录已替换")

	if source != SourceLoad {
		s.runHooks(ctx, ReplaceEvent{Record: owned, Version: version, Source: source})
	}
	return version, nil
}

// OnReplace 注册替换钩子
func (s *PortfolioService) OnReplace(hook ReplaceHook) {
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, hook)
	s.hooksMu.Unlock()
}

func (s *PortfolioService) runHooks(ctx context.Context, ev ReplaceEvent) {
	s.hooksMu.RLock()
	hooks := make([]ReplaceHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.hooksMu.RUnlock()

	for _, hook := range hooks {
		// 每个钩子拿到独立副本
		hookEv := ev
		hookEv.Record = ev.Record.Clone()
		if err := hook(ctx, hookEv); err != nil {
			s.logger.Warn().Err(err).Uint64("version", ev.Version).Msg("替换钩子执行失败")
		}
	}
}

// Generating 是否有生成请求正在进行
func (s *PortfolioService) Generating() bool {
	return s.generating.Load()
}

// Generate 生成并替换权威记录。同一时间只允许一个生成请求，失败时保留原记录
func (s *PortfolioService) Generate(ctx context.Context, text string) (*types.PortfolioRecord, error) {
	if !s.generating.CompareAndSwap(false, true) {
		return nil, types.ErrGenerationInProgress
	}
	defer s.generating.Store(false)

	return s.generateLocked(ctx, text, func(ctx context.Context) {
		s.archive(ctx, "input.txt", []byte(text), "text/plain; charset=utf-8")
	})
}

// GenerateFromPDF 从上传的PDF提取文本后生成
func (s *PortfolioService) GenerateFromPDF(ctx context.Context, reader io.Reader, filename string) (*types.PortfolioRecord, error) {
	if s.components.Extractor == nil {
		return nil, types.NewValidationError("file", MsgPDFUnsupported)
	}
	if !s.generating.CompareAndSwap(false, true) {
		return nil, types.ErrGenerationInProgress
	}
	defer s.generating.Store(false)

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	text, err := s.components.Extractor.ExtractText(ctx, bytes.NewReader(data), filename)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", filename).Msg("PDF文本提取失败")
		return nil, types.NewValidationError("file", MsgPDFNoText)
	}

	return s.generateLocked(ctx, text, func(ctx context.Context) {
		s.archive(ctx, filename, data, "application/pdf")
	})
}

// generateLocked 调用方已持有生成标志
func (s *PortfolioService) generateLocked(ctx context.Context, text string, archive func(context.Context)) (*types.PortfolioRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.NewValidationError("text", parser.EmptyInputMessage)
	}

	ctx, span := s.tracer.Start(ctx, "PortfolioService.Generate")
	defer span.End()

	archive(ctx)

	start := time.Now()
	record, err := s.components.Generator.Generate(ctx, text)
	if err != nil {
		errType := tracing.ErrorTypeLLM
		if errors.Is(err, types.ErrValidation) {
			errType = tracing.ErrorTypeValidation
		}
		tracing.RecordError(span, err, errType)
		return nil, err
	}

	if _, err := s.replace(ctx, record, SourceGenerate); err != nil {
		return nil, err
	}
	s.logger.Info().Dur("elapsed", time.Since(start)).Msg("作品集生成完成")
	return record.Clone(), nil
}

func (s *PortfolioService) archive(ctx context.Context, filename string, data []byte, contentType string) {
	if s.components.Archive == nil {
		return
	}
	key, err := s.components.Archive.ArchiveInput(ctx, filename, data, contentType)
	if err != nil {
		s.logger.Warn().Err(err).Msg("归档生成输入失败")
		return
	}
	s.logger.Debug().Str("object", key).Msg("生成输入已归档")
}

// Load 从快照存储恢复最近一次提交的记录
func (s *PortfolioService) Load(ctx context.Context) error {
	if s.components.Snapshots == nil {
		return types.ErrRecordNotLoaded
	}
	record, err := s.components.Snapshots.LatestSnapshot(ctx)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		return types.ErrRecordNotLoaded
	}
	if err != nil {
		return fmt.Errorf("加载作品集快照失败: %w", err)
	}
	_, err = s.replace(ctx, record, SourceLoad)
	return err
}

// NewEditor 创建绑定到本服务的编辑器
func (s *PortfolioService) NewEditor(opts ...editor.Option) *editor.Editor {
	all := make([]editor.Option, 0, len(s.settings.EditorOptions)+len(opts))
	all = append(all, s.settings.EditorOptions...)
	all = append(all, opts...)
	return editor.New(s, all...)
}

func (s *PortfolioService) persistSnapshot(ctx context.Context, ev ReplaceEvent) error {
	if _, err := s.components.Snapshots.SaveSnapshot(ctx, ev.Record, ev.Version, ev.Source); err != nil {
		return fmt.Errorf("保存快照失败: %w", err)
	}
	return nil
}

func (s *PortfolioService) publishCommitted(ctx context.Context, ev ReplaceEvent) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("生成事件ID失败: %w", err)
	}
	return s.components.Publisher.PublishCommitted(ctx, &storage.PortfolioCommittedEvent{
		EventID:     id.String(),
		Version:     ev.Version,
		Source:      ev.Source,
		CommittedAt: time.Now().UTC(),
		Record:      ev.Record,
	})
}

var _ editor.Source = (*PortfolioService)(nil)
