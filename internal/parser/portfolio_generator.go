package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/tracing"
	"ai-portfolio-go/internal/types"
)

// EmptyInputMessage 输入为空时的提示
const EmptyInputMessage = "Please paste your resume or LinkedIn profile content."

var errMissingEssentials = errors.New("generated data is missing essential fields")

const defaultSystemPrompt = `You are an expert career coach and professional resume writer. Your task is to analyze the provided resume/LinkedIn profile text and transform it into a structured, HR-friendly JSON object for a modern portfolio website.

Rules:
- Enhance the content by using strong action verbs, quantifying achievements where possible, and keeping a professional tone.
- Generate SEO metadata for the portfolio page.
- Extract certifications and coding profiles like LeetCode and HackerRank if available.
- For each skill provide a 'level' from 0-100 representing proficiency, where 100 is an expert. This must be an objective estimation based on the provided text.
- Use 'Present' for ongoing dates.
- If a field like 'leetcode', 'hackerrank', or 'resumeUrl' is not present in the text, omit it from the JSON.
- The 'imageUrl' field in projects and 'profilePictureUrl' in personalDetails must be left as an empty string.
- The output MUST be a single valid JSON object matching the schema. Do not wrap it in prose.`

// PortfolioGenerator 调用生成模型，把简历文本转换为作品集记录
type PortfolioGenerator struct {
	llmModel model.ToolCallingChatModel

	systemPrompt string
	// 模型不支持原生结构化输出时，把 JSON Schema 放进提示词
	schemaInPrompt bool
	schema         *gojsonschema.Schema
	schemaText     string

	timeout time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// GeneratorOption 生成器配置选项
type GeneratorOption func(*PortfolioGenerator)

// WithSchemaInPrompt 在系统提示词中附带 JSON Schema
func WithSchemaInPrompt(enabled bool) GeneratorOption {
	return func(g *PortfolioGenerator) {
		g.schemaInPrompt = enabled
	}
}

// WithGenerateTimeout 设置单次模型调用超时
func WithGenerateTimeout(d time.Duration) GeneratorOption {
	return func(g *PortfolioGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithSystemPrompt 覆盖默认系统提示词
func WithSystemPrompt(prompt string) GeneratorOption {
	return func(g *PortfolioGenerator) {
		if prompt != "" {
			g.systemPrompt = prompt
		}
	}
}

// WithGeneratorLogger 设置日志记录器
func WithGeneratorLogger(l zerolog.Logger) GeneratorOption {
	return func(g *PortfolioGenerator) {
		g.logger = l
	}
}

// NewPortfolioGenerator 创建生成器并编译校验用的 JSON Schema
func NewPortfolioGenerator(llmModel model.ToolCallingChatModel, options ...GeneratorOption) (*PortfolioGenerator, error) {
	if llmModel == nil {
		return nil, errors.New("llm model is required")
	}

	doc := types.PortfolioSchema().ToJSONSchema()
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("编译作品集JSON Schema失败: %w", err)
	}
	schemaBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化作品集JSON Schema失败: %w", err)
	}

	g := &PortfolioGenerator{
		llmModel:     llmModel,
		systemPrompt: defaultSystemPrompt,
		schema:       schema,
		schemaText:   string(schemaBytes),
		timeout:      constants.DefaultLLMTimeout,
		logger:       logger.Component("portfolio_generator"),
		tracer:       tracing.Tracer("parser"),
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// generatedPortfolio 模型输出的原始结构。指针字段用于区分"缺失"和"为空"
type generatedPortfolio struct {
	PersonalDetails *types.PersonalDetails  `json:"personalDetails"`
	WorkExperience  *[]types.WorkExperience `json:"workExperience"`
	Education       []types.Education       `json:"education"`
	Skills          []generatedSkill        `json:"skills"`
	Projects        []types.Project         `json:"projects"`
	Achievements    []types.Achievement     `json:"achievements"`
	Certifications  []types.Certification   `json:"certifications"`
	SEO             *types.SEO              `json:"seo"`
}

// generatedSkill 模型偶尔返回小数等级
type generatedSkill struct {
	Category string  `json:"category"`
	Name     string  `json:"name"`
	Level    float64 `json:"level"`
}

// Generate 把简历文本转换为作品集记录。
// 空输入返回 *types.ValidationError 且不调用模型；其余失败统一返回 *types.GenerationError，不重试
func (g *PortfolioGenerator) Generate(ctx context.Context, text string) (*types.PortfolioRecord, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, types.NewValidationError("text", EmptyInputMessage)
	}

	ctx, span := g.tracer.Start(ctx, "PortfolioGenerator.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("input.length", len(trimmed)),
		tracing.SafeString("input.preview", trimmed, tracing.MaxPreviewLength),
	)

	content, err := g.callLLM(ctx, trimmed)
	if err != nil {
		return nil, g.fail(span, "call_model", err)
	}

	jsonStr := extractJSON(content)
	if jsonStr == "" {
		g.logger.Debug().Str("response", tracing.Truncate(content, 500)).Msg("无法从模型响应中提取JSON")
		return nil, g.fail(span, "extract_json", errors.New("no JSON object in model output"))
	}

	var raw generatedPortfolio
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, g.fail(span, "decode_json", err)
	}
	if raw.PersonalDetails == nil || raw.WorkExperience == nil {
		return nil, g.fail(span, "check_essentials", errMissingEssentials)
	}

	g.checkSchema(jsonStr)

	record := raw.toRecord()
	g.logger.Info().
		Int("work_experience", len(record.WorkExperience)).
		Int("skills", len(record.Skills)).
		Int("projects", len(record.Projects)).
		Msg("作品集内容生成成功")
	return record, nil
}

// callLLM 发送系统提示与用户文本，返回模型输出
func (g *PortfolioGenerator) callLLM(ctx context.Context, text string) (string, error) {
	systemContent := g.systemPrompt
	if g.schemaInPrompt {
		systemContent += "\n\nJSON Schema:\n" + g.schemaText
	}
	messages := []*einoschema.Message{
		einoschema.SystemMessage(systemContent),
		einoschema.UserMessage("Here is the resume/LinkedIn content:\n---\n" + text + "\n---"),
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.llmModel.Generate(callCtx, messages)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty model response")
	}
	g.logger.Debug().Dur("elapsed", time.Since(start)).Int("response_length", len(resp.Content)).Msg("模型调用完成")
	return resp.Content, nil
}

// checkSchema 做完整的 Schema 校验。非必要字段的偏差只记警告
func (g *PortfolioGenerator) checkSchema(jsonStr string) {
	result, err := g.schema.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		g.logger.Warn().Err(err).Msg("作品集Schema校验执行失败")
		return
	}
	if result.Valid() {
		return
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	g.logger.Warn().Strs("issues", issues).Msg("生成结果与Schema存在偏差，已按默认值补齐")
}

func (g *PortfolioGenerator) fail(span trace.Span, op string, cause error) error {
	genErr := types.NewGenerationError(op, cause)
	g.logger.Error().Err(cause).Str("op", op).Msg("作品集内容生成失败")
	tracing.RecordError(span, cause, tracing.ErrorTypeLLM, attribute.String("generate.op", op))
	return genErr
}

// toRecord 补齐默认值：证书缺失置空、图片字段清空、技能等级取整并限制范围
func (raw *generatedPortfolio) toRecord() *types.PortfolioRecord {
	record := &types.PortfolioRecord{
		PersonalDetails: *raw.PersonalDetails,
		WorkExperience:  *raw.WorkExperience,
		Education:       raw.Education,
		Projects:        raw.Projects,
		Achievements:    raw.Achievements,
		Certifications:  raw.Certifications,
	}
	if raw.SEO != nil {
		record.SEO = *raw.SEO
	}
	record.Skills = make([]types.Skill, 0, len(raw.Skills))
	for _, s := range raw.Skills {
		record.Skills = append(record.Skills, types.Skill{
			Category: s.Category,
			Name:     s.Name,
			Level:    int(math.Round(s.Level)),
		})
	}

	record.PersonalDetails.ProfilePictureURL = ""
	for i := range record.Projects {
		record.Projects[i].ImageURL = ""
	}
	record.Normalize()
	return record
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// extractJSON 从模型输出中提取 JSON 对象，兼容代码块包裹和前后多余文字
func extractJSON(text string) string {
	if matches := fencedJSON.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	// 括号配对，跳过字符串字面量中的括号
	level := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
