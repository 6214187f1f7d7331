package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-portfolio-go/internal/agent"
	"ai-portfolio-go/internal/types"
)

const validGeneratedJSON = `{
  "personalDetails": {
    "name": "Jane Doe",
    "title": "Senior Backend Engineer",
    "email": "jane@example.com",
    "summary": "Engineer with 8 years of experience.",
    "profilePictureUrl": "https://example.com/me.png"
  },
  "workExperience": [
    {"company": "Acme", "jobTitle": "Engineer", "startDate": "2019", "endDate": "Present",
     "responsibilities": ["Cut p99 latency by 40%"]}
  ],
  "education": [{"institution": "MIT", "degree": "BSc", "startDate": "2011", "endDate": "2015"}],
  "skills": [{"category": "Languages", "name": "Go", "level": 92.6}],
  "projects": [{"name": "kv", "description": "A store {with braces}", "technologies": ["Go"], "imageUrl": "x"}],
  "achievements": [],
  "seo": {"title": "Jane Doe", "description": "Portfolio of Jane Doe"}
}`

func newTestGenerator(t *testing.T, m *agent.MockChatModel, opts ...GeneratorOption) *PortfolioGenerator {
	t.Helper()
	g, err := NewPortfolioGenerator(m, opts...)
	require.NoError(t, err)
	return g
}

// 场景A：成功生成
func TestGenerate_Success(t *testing.T) {
	mock := agent.NewMockChatModel(validGeneratedJSON, nil)
	g := newTestGenerator(t, mock)

	record, err := g.Generate(context.Background(), "  Jane Doe, Senior Backend Engineer at Acme...  ")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", record.PersonalDetails.Name)
	assert.Equal(t, "", record.PersonalDetails.ProfilePictureURL, "图片字段应被清空")
	assert.Equal(t, "", record.Projects[0].ImageURL)
	assert.Equal(t, 93, record.Skills[0].Level, "小数等级应四舍五入")
	assert.NotNil(t, record.Certifications, "缺失的证书列表应补齐为空列表")
	assert.Empty(t, record.Certifications)
	assert.Equal(t, []string{"Cut p99 latency by 40%"}, record.WorkExperience[0].Responsibilities)
	require.NoError(t, record.Validate())

	require.Equal(t, 1, mock.Calls())
	msgs := mock.ReceivedMessages()[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "career coach")
	assert.NotContains(t, msgs[0].Content, "JSON Schema:", "默认不在提示词中附带Schema")
	assert.Contains(t, msgs[1].Content, "Jane Doe, Senior Backend Engineer at Acme...")
}

func TestGenerate_SchemaInPrompt(t *testing.T) {
	mock := agent.NewMockChatModel(validGeneratedJSON, nil)
	g := newTestGenerator(t, mock, WithSchemaInPrompt(true))

	_, err := g.Generate(context.Background(), "resume")
	require.NoError(t, err)
	system := mock.ReceivedMessages()[0][0].Content
	assert.Contains(t, system, "JSON Schema:")
	assert.Contains(t, system, "Proficiency level from 0 to 100")
}

func TestGenerate_FencedResponse(t *testing.T) {
	mock := agent.NewMockChatModel("Here you go:\n```json\n"+validGeneratedJSON+"\n```\nThanks!", nil)
	g := newTestGenerator(t, mock)

	record, err := g.Generate(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, "Acme", record.WorkExperience[0].Company)
}

// 场景B：空输入不调用模型
func TestGenerate_EmptyInput(t *testing.T) {
	mock := agent.NewMockChatModel(validGeneratedJSON, nil)
	g := newTestGenerator(t, mock)

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := g.Generate(context.Background(), in)
		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, EmptyInputMessage, vErr.Message)
	}
	assert.Equal(t, 0, mock.Calls(), "空输入不应调用模型")
}

func TestGenerate_Failures(t *testing.T) {
	cases := []struct {
		name     string
		response string
		err      error
	}{
		{"model error", "", errors.New("503 service unavailable")},
		{"no json", "I cannot help with that.", nil},
		{"malformed json", `{"personalDetails": {"name": }`, nil},
		{"missing personal details", `{"workExperience": []}`, nil},
		{"missing work experience", `{"personalDetails": {"name": "A"}}`, nil},
		{"null work experience", `{"personalDetails": {"name": "A"}, "workExperience": null}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGenerator(t, agent.NewMockChatModel(tc.response, tc.err))

			record, err := g.Generate(context.Background(), "some resume")
			assert.Nil(t, record)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrGeneration)
			assert.Equal(t, types.GenerationFailedMessage, err.Error(), "用户只应看到通用提示")
			assert.NotContains(t, err.Error(), "503")
		})
	}
}

func TestGenerate_EmptyWorkExperienceAccepted(t *testing.T) {
	g := newTestGenerator(t, agent.NewMockChatModel(`{"personalDetails": {"name": "A"}, "workExperience": []}`, nil))

	record, err := g.Generate(context.Background(), "resume")
	require.NoError(t, err)
	assert.Empty(t, record.WorkExperience)
	assert.NotNil(t, record.Skills)
	assert.NotNil(t, record.Certifications)
}

func TestGenerate_ClampsSkillLevels(t *testing.T) {
	g := newTestGenerator(t, agent.NewMockChatModel(
		`{"personalDetails": {"name": "A"}, "workExperience": [], "skills": [{"name": "x", "level": 140}, {"name": "y", "level": -3}]}`, nil))

	record, err := g.Generate(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, 100, record.Skills[0].Level)
	assert.Equal(t, 0, record.Skills[1].Level)
}

func TestGenerate_ContextCancelled(t *testing.T) {
	mock := agent.NewMockChatModel(validGeneratedJSON, nil)
	mock.Block = make(chan struct{})
	g := newTestGenerator(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, "resume")
	assert.ErrorIs(t, err, types.ErrGeneration)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Sure! {"a":{"b":2}} Hope it helps`, `{"a":{"b":2}}`},
		{"brace in string", `{"a":"}{"} trailing }`, `{"a":"}{"}`},
		{"escaped quote", `{"a":"\"}"}`, `{"a":"\"}"}`},
		{"none", "no json here", ""},
		{"unbalanced", `{"a":1`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJSON(tc.in))
		})
	}
}

func TestPortfolioSchemaCompiles(t *testing.T) {
	g := newTestGenerator(t, agent.NewMockChatModel("", nil))
	assert.True(t, strings.Contains(g.schemaText, `"personalDetails"`))
}
