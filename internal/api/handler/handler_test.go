package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-portfolio-go/internal/agent"
	"ai-portfolio-go/internal/api/handler"
	"ai-portfolio-go/internal/api/router"
	"ai-portfolio-go/internal/auth"
	"ai-portfolio-go/internal/editor"
	"ai-portfolio-go/internal/parser"
	"ai-portfolio-go/internal/processor"
	"ai-portfolio-go/internal/storage"
	"ai-portfolio-go/internal/types"
)

const generatedJSON = `{
  "personalDetails": {"name": "Jane Doe", "title": "Engineer", "email": "jane@example.com", "summary": "Builds things."},
  "workExperience": [{"company": "Acme", "jobTitle": "Engineer", "startDate": "2020", "endDate": "Present", "responsibilities": ["Shipped"]}],
  "skills": [{"category": "Languages", "name": "Go", "level": 90}],
  "projects": [{"name": "Site", "description": "Portfolio", "technologies": ["Go"]}],
  "seo": {"title": "Jane", "description": "Jane's portfolio"}
}`

type stubExtractor struct{ text string }

func (s stubExtractor) ExtractText(_ context.Context, r io.Reader, _ string) (string, error) {
	_, _ = io.ReadAll(r)
	return s.text, nil
}

type testServer struct {
	h       *server.Hertz
	model   *agent.MockChatModel
	svc     *processor.PortfolioService
	editors *handler.EditorHandler
}

func newTestServer(t *testing.T, model *agent.MockChatModel, extra ...processor.ComponentOpt) *testServer {
	t.Helper()
	gen, err := parser.NewPortfolioGenerator(model, parser.WithGeneratorLogger(zerolog.Nop()))
	require.NoError(t, err)

	opts := append([]processor.ComponentOpt{
		processor.WithGenerator(gen),
		processor.WithArchive(storage.NewInMemoryInputArchive()),
		processor.WithSnapshots(storage.NewInMemorySnapshotStore()),
	}, extra...)
	svc, err := processor.NewPortfolioService(opts,
		processor.WithLogger(zerolog.Nop()),
		processor.WithEditorOptions(editor.WithLogger(zerolog.Nop())),
	)
	require.NoError(t, err)

	editors := handler.NewEditorHandler(svc)
	h := server.New()
	router.RegisterRoutes(h, router.Handlers{
		Portfolio: handler.NewPortfolioHandler(svc),
		Editor:    editors,
		Auth:      handler.NewAuthHandler(auth.NewGate("", ""), editors),
		Messages:  handler.NewMessageHandler(storage.NewInMemoryMessageLog()),
	})
	return &testServer{h: h, model: model, svc: svc, editors: editors}
}

func (s *testServer) do(method, path string, body []byte, headers ...ut.Header) *ut.ResponseRecorder {
	var b *ut.Body
	if body != nil {
		b = &ut.Body{Body: bytes.NewReader(body), Len: len(body)}
	}
	return ut.PerformRequest(s.h.Engine, method, path, b, headers...)
}

func (s *testServer) doJSON(method, path string, payload interface{}, token string) *ut.ResponseRecorder {
	body, _ := json.Marshal(payload)
	headers := []ut.Header{{Key: "Content-Type", Value: "application/json"}}
	if token != "" {
		headers = append(headers, ut.Header{Key: "Authorization", Value: "Bearer " + token})
	}
	return s.do(method, path, body, headers...)
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.doJSON("POST", "/api/v1/auth/login", map[string]string{"username": "admin", "password": "password123"}, "")
	require.Equal(t, 200, w.Result().StatusCode())
	var resp handler.LoginResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeError(t *testing.T, w *ut.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Result().Body(), &body))
	return body["error"]
}

func decodeEditor(t *testing.T, w *ut.ResponseRecorder) handler.EditorResponse {
	t.Helper()
	var resp handler.EditorResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename, contentType string, data []byte) ([]byte, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, filename))
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
	w := s.do("GET", "/api/v1/health", nil)
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, string(w.Result().Body()))
}

func TestGetPortfolio_NotLoaded(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
	w := s.do("GET", "/api/v1/portfolio", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
	assert.Equal(t, handler.MsgRecordNotLoaded, decodeError(t, w))
}

func TestGenerate_Text(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))

	w := s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "Jane Doe, Engineer at Acme"}, "")
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))

	var resp handler.PortfolioResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.Equal(t, uint64(1), resp.Version)
	assert.Equal(t, "Jane Doe", resp.Record.PersonalDetails.Name)

	w = s.do("GET", "/api/v1/portfolio", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.Equal(t, "Acme", resp.Record.WorkExperience[0].Company)

	w = s.do("GET", "/api/v1/portfolio/status", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.JSONEq(t, `{"generating":false,"version":1}`, string(w.Result().Body()))
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
		w := s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "  "}, "")
		assert.Equal(t, 400, w.Result().StatusCode())
		assert.Equal(t, parser.EmptyInputMessage, decodeError(t, w))
		assert.Equal(t, 0, s.model.Calls())
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
		w := s.do("POST", "/api/v1/portfolio/generate", []byte("{"), ut.Header{Key: "Content-Type", Value: "application/json"})
		assert.Equal(t, 400, w.Result().StatusCode())
		assert.Equal(t, handler.MsgInvalidRequest, decodeError(t, w))
	})

	t.Run("model failure", func(t *testing.T) {
		s := newTestServer(t, agent.NewMockChatModel("", fmt.Errorf("quota exceeded")))
		w := s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "resume"}, "")
		assert.Equal(t, 502, w.Result().StatusCode())
		assert.Equal(t, types.GenerationFailedMessage, decodeError(t, w))
	})
}

func TestGenerate_InProgress(t *testing.T) {
	model := agent.NewMockChatModel(generatedJSON, nil)
	model.Block = make(chan struct{})
	s := newTestServer(t, model)

	done := make(chan int, 1)
	go func() {
		w := s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "resume"}, "")
		done <- w.Result().StatusCode()
	}()
	require.Eventually(t, s.svc.Generating, time.Second, 5*time.Millisecond)

	w := s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "again"}, "")
	assert.Equal(t, 409, w.Result().StatusCode())
	assert.Equal(t, handler.MsgGenerationInProgress, decodeError(t, w))

	close(model.Block)
	assert.Equal(t, 200, <-done)
}

func TestGenerate_PDF(t *testing.T) {
	t.Run("extracted", func(t *testing.T) {
		s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil),
			processor.WithExtractor(stubExtractor{text: "Jane Doe resume"}))
		body, ct := multipartBody(t, nil, "file", "cv.pdf", "application/pdf", []byte("%PDF-1.4"))
		w := s.do("POST", "/api/v1/portfolio/generate", body, ut.Header{Key: "Content-Type", Value: ct})
		require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))
		assert.Contains(t, s.model.ReceivedMessages()[0][1].Content, "Jane Doe resume")
	})

	t.Run("no extractor", func(t *testing.T) {
		s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
		body, ct := multipartBody(t, nil, "file", "cv.pdf", "application/pdf", []byte("%PDF-1.4"))
		w := s.do("POST", "/api/v1/portfolio/generate", body, ut.Header{Key: "Content-Type", Value: ct})
		assert.Equal(t, 400, w.Result().StatusCode())
		assert.Equal(t, processor.MsgPDFUnsupported, decodeError(t, w))
	})

	t.Run("missing file", func(t *testing.T) {
		s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
		body, ct := multipartBody(t, map[string]string{"note": "x"}, "", "", "", nil)
		w := s.do("POST", "/api/v1/portfolio/generate", body, ut.Header{Key: "Content-Type", Value: ct})
		assert.Equal(t, 400, w.Result().StatusCode())
	})
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))

	w := s.doJSON("POST", "/api/v1/auth/login", map[string]string{"username": "admin", "password": "nope"}, "")
	assert.Equal(t, 401, w.Result().StatusCode())
	assert.Equal(t, "Invalid username or password.", decodeError(t, w))

	token := s.login(t)
	w = s.doJSON("POST", "/api/v1/auth/logout", nil, token)
	assert.Equal(t, 200, w.Result().StatusCode())

	// 登出后令牌失效
	w = s.do("GET", "/api/v1/admin/editor", nil, ut.Header{Key: "Authorization", Value: "Bearer " + token})
	assert.Equal(t, 401, w.Result().StatusCode())
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))

	cases := []struct {
		method, path string
	}{
		{"GET", "/api/v1/admin/editor"},
		{"POST", "/api/v1/admin/editor/ops"},
		{"POST", "/api/v1/admin/editor/commit"},
		{"GET", "/api/v1/admin/messages"},
		{"DELETE", "/api/v1/admin/messages"},
		{"POST", "/api/v1/auth/logout"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := s.do(tc.method, tc.path, nil)
			assert.Equal(t, 401, w.Result().StatusCode())

			w = s.do(tc.method, tc.path, nil, ut.Header{Key: "Authorization", Value: "Bearer forged"})
			assert.Equal(t, 401, w.Result().StatusCode())
			assert.Equal(t, handler.MsgUnauthorized, decodeError(t, w))
		})
	}
}

func TestEditorFlow(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
	token := s.login(t)

	// 尚未生成
	w := s.doJSON("GET", "/api/v1/admin/editor", nil, token)
	assert.Equal(t, 404, w.Result().StatusCode())

	w = s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "resume"}, "")
	require.Equal(t, 200, w.Result().StatusCode())

	w = s.doJSON("GET", "/api/v1/admin/editor", nil, token)
	require.Equal(t, 200, w.Result().StatusCode())
	resp := decodeEditor(t, w)
	assert.Equal(t, "Jane Doe", resp.Record.PersonalDetails.Name)
	assert.False(t, resp.SavedRecently)

	w = s.doJSON("POST", "/api/v1/admin/editor/ops", editor.OperationRequest{Op: editor.OpSetPersonal, Field: "name", Value: "Janet"}, token)
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))
	assert.Equal(t, "Janet", decodeEditor(t, w).Record.PersonalDetails.Name)

	w = s.doJSON("POST", "/api/v1/admin/editor/ops", editor.OperationRequest{Op: editor.OpAppendItem, Section: "skills"}, token)
	require.Equal(t, 200, w.Result().StatusCode())
	skills := decodeEditor(t, w).Record.Skills
	require.Len(t, skills, 2)
	assert.Equal(t, 80, skills[1].Level)

	// 未提交前权威记录不变
	w = s.do("GET", "/api/v1/portfolio", nil)
	var pr handler.PortfolioResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &pr))
	assert.Equal(t, "Jane Doe", pr.Record.PersonalDetails.Name)

	w = s.doJSON("POST", "/api/v1/admin/editor/commit", nil, token)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.True(t, decodeEditor(t, w).SavedRecently)

	w = s.do("GET", "/api/v1/portfolio", nil)
	require.NoError(t, json.Unmarshal(w.Result().Body(), &pr))
	assert.Equal(t, "Janet", pr.Record.PersonalDetails.Name)
	assert.Equal(t, uint64(2), pr.Version)
}

func TestEditorOps_Rejected(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
	token := s.login(t)
	require.Equal(t, 200, s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "resume"}, "").Result().StatusCode())

	level := 150
	cases := []struct {
		name string
		req  editor.OperationRequest
	}{
		{"unknown op", editor.OperationRequest{Op: "explode"}},
		{"unknown field", editor.OperationRequest{Op: editor.OpSetPersonal, Field: "shoeSize", Value: "42"}},
		{"index out of range", editor.OperationRequest{Op: editor.OpRemoveItem, Section: "skills", Index: 9}},
		{"not a list", editor.OperationRequest{Op: editor.OpAppendItem, Section: "seo"}},
		{"skill level", editor.OperationRequest{Op: editor.OpSetSkillLevel, Index: 0, Level: &level}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.doJSON("POST", "/api/v1/admin/editor/ops", tc.req, token)
			assert.Equal(t, 400, w.Result().StatusCode(), string(w.Result().Body()))
			assert.NotEmpty(t, decodeError(t, w))
		})
	}

	w := s.doJSON("GET", "/api/v1/admin/editor", nil, token)
	assert.Equal(t, 90, decodeEditor(t, w).Record.Skills[0].Level)
}

func TestEditorImage(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
	token := s.login(t)
	require.Equal(t, 200, s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "resume"}, "").Result().StatusCode())
	authHeader := ut.Header{Key: "Authorization", Value: "Bearer " + token}

	upload := func(fields map[string]string, contentType string, data []byte) *ut.ResponseRecorder {
		var body []byte
		var ct string
		if data == nil {
			body, ct = multipartBody(t, fields, "", "", "", nil)
		} else {
			body, ct = multipartBody(t, fields, "file", "img", contentType, data)
		}
		return s.do("POST", "/api/v1/admin/editor/image", body, ut.Header{Key: "Content-Type", Value: ct}, authHeader)
	}

	w := upload(map[string]string{"target": "profile"}, "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))
	assert.True(t, strings.HasPrefix(decodeEditor(t, w).Record.PersonalDetails.ProfilePictureURL, "data:image/png;base64,"))

	w = upload(map[string]string{"target": "project", "index": "0"}, "image/webp", []byte("webp"))
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Equal(t, "data:image/webp;base64,d2VicA==", decodeEditor(t, w).Record.Projects[0].ImageURL)

	w = upload(map[string]string{"target": "profile"}, "text/plain", []byte("hello"))
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Equal(t, "Please upload a valid image file (PNG, JPG, WebP).", decodeError(t, w))

	w = upload(map[string]string{"target": "profile"}, "image/png", bytes.Repeat([]byte{1}, 2*1024*1024+1))
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Equal(t, "Image size should not exceed 2MB.", decodeError(t, w))

	w = upload(map[string]string{"target": "project", "index": "5"}, "image/png", []byte("png"))
	assert.Equal(t, 400, w.Result().StatusCode())

	w = upload(map[string]string{"target": "banner"}, "image/png", []byte("png"))
	assert.Equal(t, 400, w.Result().StatusCode())

	// 不带文件即清空
	w = upload(map[string]string{"target": "profile"}, "", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Equal(t, "", decodeEditor(t, w).Record.PersonalDetails.ProfilePictureURL)
}

func TestLogoutReleasesEditor(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))
	require.Equal(t, 200, s.doJSON("POST", "/api/v1/portfolio/generate", map[string]string{"text": "resume"}, "").Result().StatusCode())

	a := s.login(t)
	b := s.login(t)
	require.Equal(t, 200, s.doJSON("GET", "/api/v1/admin/editor", nil, a).Result().StatusCode())
	require.Equal(t, 200, s.doJSON("GET", "/api/v1/admin/editor", nil, b).Result().StatusCode())
	assert.Equal(t, 2, s.editors.ActiveEditors())

	require.Equal(t, 200, s.doJSON("POST", "/api/v1/auth/logout", nil, a).Result().StatusCode())
	assert.Equal(t, 1, s.editors.ActiveEditors())
}

// 场景C、F：留言校验与倒序列表
func TestContactMessages(t *testing.T) {
	s := newTestServer(t, agent.NewMockChatModel(generatedJSON, nil))

	w := s.doJSON("POST", "/api/v1/contact", handler.ContactRequest{Name: "A", Email: "bad", Message: "hi"}, "")
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Equal(t, storage.MsgInvalidEmail, decodeError(t, w))

	w = s.doJSON("POST", "/api/v1/contact", handler.ContactRequest{Name: "", Email: "a@b.co", Message: "hi"}, "")
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Equal(t, storage.MsgFillAllFields, decodeError(t, w))

	for _, name := range []string{"first", "second"} {
		w = s.doJSON("POST", "/api/v1/contact", handler.ContactRequest{Name: name, Email: "a@b.co", Message: "hello"}, "")
		require.Equal(t, 201, w.Result().StatusCode())
	}

	token := s.login(t)
	w = s.doJSON("GET", "/api/v1/admin/messages", nil, token)
	require.Equal(t, 200, w.Result().StatusCode())
	var list struct {
		Messages []types.ContactMessage `json:"messages"`
		Total    int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &list))
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "second", list.Messages[0].Name)
	assert.Equal(t, "first", list.Messages[1].Name)

	w = s.doJSON("DELETE", "/api/v1/admin/messages", nil, token)
	require.Equal(t, 200, w.Result().StatusCode())

	w = s.doJSON("GET", "/api/v1/admin/messages", nil, token)
	require.NoError(t, json.Unmarshal(w.Result().Body(), &list))
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.Messages)
}
