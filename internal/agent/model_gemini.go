package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/types"
)

// contentGenerator genai.Models 中用到的方法，便于测试替换
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiChatModel 基于 google.golang.org/genai 的 eino 模型实现。
// 配置了 ResponseSchema 时使用 Gemini 原生结构化输出
type GeminiChatModel struct {
	models         contentGenerator
	modelName      string
	responseSchema *genai.Schema
	temperature    *float32
	logger         zerolog.Logger
}

// GeminiOption Gemini 模型选项
type GeminiOption func(*GeminiChatModel)

// WithResponseSchema 开启 JSON 结构化输出
func WithResponseSchema(node *types.SchemaNode) GeminiOption {
	return func(g *GeminiChatModel) {
		if node != nil {
			g.responseSchema = ToGenAISchema(node)
		}
	}
}

// WithGeminiTemperature 设置默认温度
func WithGeminiTemperature(t float32) GeminiOption {
	return func(g *GeminiChatModel) {
		g.temperature = &t
	}
}

// NewGeminiChatModel 创建 Gemini 客户端
func NewGeminiChatModel(ctx context.Context, apiKey, modelName string, opts ...GeminiOption) (*GeminiChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("Gemini API 密钥不能为空")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	return newGeminiChatModel(client.Models, modelName, opts...), nil
}

func newGeminiChatModel(models contentGenerator, modelName string, opts ...GeminiOption) *GeminiChatModel {
	if strings.TrimSpace(modelName) == "" {
		modelName = constants.DefaultGeminiModel
	}
	g := &GeminiChatModel{
		models:    models,
		modelName: modelName,
		logger:    logger.Component("gemini_model"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate 实现 model.BaseChatModel 接口。system 消息合并为 SystemInstruction
func (g *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{Temperature: g.temperature}, options...)

	config := &genai.GenerateContentConfig{Temperature: common.Temperature}
	if common.MaxTokens != nil {
		config.MaxOutputTokens = int32(*common.MaxTokens)
	}
	if g.responseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = g.responseSchema
	}

	var systemParts []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case schema.System:
			systemParts = append(systemParts, genai.NewPartFromText(m.Content))
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(systemParts) > 0 {
		config.SystemInstruction = &genai.Content{Parts: systemParts}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("没有可发送给 Gemini 的用户消息")
	}

	modelName := g.modelName
	if common.Model != nil && *common.Model != "" {
		modelName = *common.Model
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini 调用失败: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("Gemini 返回空内容")
	}

	g.logger.Debug().Str("model", modelName).Dur("elapsed", time.Since(start)).Int("response_length", len(text)).Msg("Gemini 调用完成")
	return schema.AssistantMessage(text, nil), nil
}

// Stream 以单个分片返回 Generate 的结果
func (g *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, messages, options...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools 结构化输出与工具调用互斥，忽略工具
func (g *GeminiChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		g.logger.Warn().Int("tools", len(tools)).Msg("Gemini 结构化输出模式不支持工具调用，已忽略")
	}
	return nil
}

// WithTools 见 BindTools
func (g *GeminiChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := g.BindTools(tools); err != nil {
		return nil, err
	}
	return g, nil
}

// ToGenAISchema 把描述树转换为 genai.Schema，保留属性声明顺序
func ToGenAISchema(node *types.SchemaNode) *genai.Schema {
	if node == nil {
		return nil
	}
	out := &genai.Schema{Description: node.Description}
	switch node.Type {
	case types.SchemaObject:
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(node.Properties))
		for _, p := range node.Properties {
			out.Properties[p.Name] = ToGenAISchema(p.Node)
			out.PropertyOrdering = append(out.PropertyOrdering, p.Name)
		}
		out.Required = append([]string(nil), node.Required...)
	case types.SchemaArray:
		out.Type = genai.TypeArray
		out.Items = ToGenAISchema(node.Items)
	case types.SchemaInteger:
		out.Type = genai.TypeInteger
	default:
		out.Type = genai.TypeString
	}
	return out
}

var _ model.ToolCallingChatModel = (*GeminiChatModel)(nil)
