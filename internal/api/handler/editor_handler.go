package handler

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/editor"
	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/processor"
	"ai-portfolio-go/internal/types"
)

// 图片目标
const (
	ImageTargetProfile = "profile"
	ImageTargetProject = "project"
)

// EditorHandler 管理员编辑接口。每个会话令牌对应一个编辑器
type EditorHandler struct {
	svc *processor.PortfolioService

	mu      sync.Mutex
	editors map[string]*editor.Editor

	logger zerolog.Logger
}

// NewEditorHandler 创建编辑处理器
func NewEditorHandler(svc *processor.PortfolioService) *EditorHandler {
	return &EditorHandler{
		svc:     svc,
		editors: make(map[string]*editor.Editor),
		logger:  logger.Component("editor_handler"),
	}
}

// EditorResponse 工作副本及保存提示
type EditorResponse struct {
	Record        *types.PortfolioRecord `json:"record"`
	SavedRecently bool                   `json:"savedRecently"`
}

// editorFor 取出或创建当前会话的编辑器
func (h *EditorHandler) editorFor(token string) *editor.Editor {
	h.mu.Lock()
	defer h.mu.Unlock()
	ed, ok := h.editors[token]
	if !ok {
		ed = h.svc.NewEditor()
		h.editors[token] = ed
	}
	return ed
}

// Release 丢弃会话的编辑器及其未保存修改
func (h *EditorHandler) Release(token string) {
	h.mu.Lock()
	ed, ok := h.editors[token]
	delete(h.editors, token)
	h.mu.Unlock()
	if ok {
		ed.Close()
	}
}

// ActiveEditors 当前持有编辑器的会话数
func (h *EditorHandler) ActiveEditors() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.editors)
}

func (h *EditorHandler) respond(ctx context.Context, c *app.RequestContext, ed *editor.Editor) {
	record, err := ed.Working()
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, EditorResponse{Record: record, SavedRecently: ed.SavedRecently()})
}

// HandleGetWorking 返回工作副本
func (h *EditorHandler) HandleGetWorking(ctx context.Context, c *app.RequestContext) {
	h.respond(ctx, c, h.editorFor(SessionToken(c)))
}

// HandleApply 执行一次编辑操作
func (h *EditorHandler) HandleApply(ctx context.Context, c *app.RequestContext) {
	var req editor.OperationRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, errorBody(MsgInvalidRequest))
		return
	}
	op, err := editor.DecodeOperation(req)
	if err != nil {
		writeError(ctx, c, err)
		return
	}

	ed := h.editorFor(SessionToken(c))
	if err := ed.Apply(op); err != nil {
		writeError(ctx, c, err)
		return
	}
	h.respond(ctx, c, ed)
}

// HandleImage 上传或清空图片。file 缺失或为空时清空目标字段
func (h *EditorHandler) HandleImage(ctx context.Context, c *app.RequestContext) {
	var target editor.ImageTarget
	switch c.PostForm("target") {
	case ImageTargetProfile, "":
		target = editor.ProfileImage()
	case ImageTargetProject:
		index, err := strconv.Atoi(c.PostForm("index"))
		if err != nil {
			c.JSON(consts.StatusBadRequest, errorBody("index must be an integer."))
			return
		}
		target = editor.ProjectImage(index)
	default:
		c.JSON(consts.StatusBadRequest, errorBody("target must be profile or project."))
		return
	}

	var file *editor.ImageFile
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader.Size > 0 {
		f, err := fileHeader.Open()
		if err != nil {
			writeError(ctx, c, err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(ctx, c, err)
			return
		}
		file = &editor.ImageFile{
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Data:        data,
		}
	}

	ed := h.editorFor(SessionToken(c))
	if err := ed.Apply(editor.AssignImage(target, file)); err != nil {
		writeError(ctx, c, err)
		return
	}
	h.respond(ctx, c, ed)
}

// HandleCommit 提交工作副本
func (h *EditorHandler) HandleCommit(ctx context.Context, c *app.RequestContext) {
	ed := h.editorFor(SessionToken(c))
	if err := ed.Commit(ctx); err != nil {
		writeError(ctx, c, err)
		return
	}
	h.respond(ctx, c, ed)
}
