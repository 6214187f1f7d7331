package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/types"
)

// 支持的生成模型提供方
const (
	ProviderGemini = "gemini"
	ProviderQwen   = "qwen"
)

// NewChatModelFromConfig 按配置创建生成模型。
// 第二个返回值表示该模型没有原生结构化输出，需要把 JSON Schema 写入提示词
func NewChatModelFromConfig(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, bool, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "":
		m, err := NewGeminiChatModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model,
			WithResponseSchema(types.PortfolioSchema()),
			WithGeminiTemperature(cfg.Temperature),
		)
		if err != nil {
			return nil, false, err
		}
		return m, false, nil
	case ProviderQwen:
		m, err := NewQwenChatModel(cfg.Qwen.APIKey, cfg.Qwen.Model, cfg.Qwen.APIURL,
			WithQwenJSONMode(true),
			WithQwenTemperature(cfg.Temperature),
		)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}
	return nil, false, fmt.Errorf("不支持的模型提供方: %s", cfg.Provider)
}
