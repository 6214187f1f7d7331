package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/logger"
)

const openAICompatibleQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"

// QwenChatModel 通过 DashScope 的 OpenAI 兼容接口调用通义千问，
// 开启 JSON 模式后模型只返回 JSON 对象
type QwenChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	jsonMode    bool
	temperature *float32
	httpClient  *http.Client
	logger      zerolog.Logger
}

// QwenOption 千问模型选项
type QwenOption func(*QwenChatModel)

// WithQwenJSONMode 开启 response_format=json_object
func WithQwenJSONMode(enabled bool) QwenOption {
	return func(q *QwenChatModel) {
		q.jsonMode = enabled
	}
}

// WithQwenTemperature 设置默认温度
func WithQwenTemperature(t float32) QwenOption {
	return func(q *QwenChatModel) {
		q.temperature = &t
	}
}

// WithQwenHTTPClient 替换 HTTP 客户端
func WithQwenHTTPClient(c *http.Client) QwenOption {
	return func(q *QwenChatModel) {
		if c != nil {
			q.httpClient = c
		}
	}
}

// NewQwenChatModel 创建千问模型客户端
func NewQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = constants.DefaultQwenModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = openAICompatibleQwenAPIURL
	}

	q := &QwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		jsonMode:   true,
		httpClient: &http.Client{Timeout: 2 * constants.DefaultLLMTimeout},
		logger:     logger.Component("qwen_model"),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger.Info().Str("api_url", q.apiURL).Str("model", q.modelName).Msg("使用阿里云通义千问 LLM 客户端")
	return q, nil
}

type qwenMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type qwenResponseFormat struct {
	Type string `json:"type"`
}

type qwenChatRequest struct {
	Model          string              `json:"model"`
	Messages       []qwenMessage       `json:"messages"`
	Temperature    *float32            `json:"temperature,omitempty"`
	MaxTokens      *int                `json:"max_tokens,omitempty"`
	ResponseFormat *qwenResponseFormat `json:"response_format,omitempty"`
}

type qwenChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate 实现 model.BaseChatModel 接口
func (q *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{Temperature: q.temperature}, options...)

	reqPayload := qwenChatRequest{
		Model:       q.modelName,
		Messages:    make([]qwenMessage, 0, len(messages)),
		Temperature: common.Temperature,
		MaxTokens:   common.MaxTokens,
	}
	if common.Model != nil && *common.Model != "" {
		reqPayload.Model = *common.Model
	}
	if q.jsonMode {
		reqPayload.ResponseFormat = &qwenResponseFormat{Type: "json_object"}
	}
	for _, m := range messages {
		reqPayload.Messages = append(reqPayload.Messages, qwenMessage{Role: string(m.Role), Content: m.Content})
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, q.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, truncate(string(bodyBytes), 300))
	}

	var apiResp qwenChatResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项")
	}

	q.logger.Debug().
		Str("model", apiResp.Model).
		Dur("elapsed", time.Since(start)).
		Int("prompt_tokens", apiResp.Usage.PromptTokens).
		Int("completion_tokens", apiResp.Usage.CompletionTokens).
		Msg("千问调用完成")

	content := ""
	if apiResp.Choices[0].Message.Content != nil {
		content = *apiResp.Choices[0].Message.Content
	}
	return schema.AssistantMessage(content, nil), nil
}

// Stream 以单个分片返回 Generate 的结果
func (q *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := q.Generate(ctx, messages, options...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools 生成场景使用 JSON 模式而非工具调用，忽略工具
func (q *QwenChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		q.logger.Warn().Int("tools", len(tools)).Msg("千问 JSON 模式不支持工具调用，已忽略")
	}
	return nil
}

// WithTools 见 BindTools
func (q *QwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := q.BindTools(tools); err != nil {
		return nil, err
	}
	return q, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ model.ToolCallingChatModel = (*QwenChatModel)(nil)
