package processor

import (
	"context"
	"fmt"
	"time"

	"ai-portfolio-go/internal/agent"
	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/editor"
	"ai-portfolio-go/internal/parser"
	"ai-portfolio-go/internal/storage"
)

// NewGeneratorFromConfig 按配置创建模型后端和作品集生成器
func NewGeneratorFromConfig(ctx context.Context, cfg config.LLMConfig) (*parser.PortfolioGenerator, error) {
	chatModel, schemaInPrompt, err := agent.NewChatModelFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建模型后端失败: %w", err)
	}
	return parser.NewPortfolioGenerator(chatModel,
		parser.WithSchemaInPrompt(schemaInPrompt),
		parser.WithGenerateTimeout(config.GetDuration(cfg.Timeout, constants.DefaultLLMTimeout)),
	)
}

// CreateService 装配完整的作品集服务：生成器、PDF提取器以及存储管理器提供的可选组件
func CreateService(ctx context.Context, cfg *config.Config, store *storage.Storage) (*PortfolioService, error) {
	generator, err := NewGeneratorFromConfig(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	extractor, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithParseTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("创建PDF提取器失败: %w", err)
	}

	return NewPortfolioService(
		[]ComponentOpt{
			WithGenerator(generator),
			WithExtractor(extractor),
			WithStorage(store),
		},
		WithEditorOptions(
			editor.WithSaveIndicatorDuration(config.GetDuration(cfg.Editor.SaveIndicator, constants.SaveIndicatorDuration)),
			editor.WithMaxImageBytes(cfg.Editor.MaxImageBytes),
		),
	)
}
