package handler

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"ai-portfolio-go/internal/storage"
	"ai-portfolio-go/internal/types"
)

// MessageHandler 联系留言
type MessageHandler struct {
	log storage.MessageLog
}

// NewMessageHandler 创建留言处理器
func NewMessageHandler(log storage.MessageLog) *MessageHandler {
	return &MessageHandler{log: log}
}

// ContactRequest 留言请求
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// HandleSubmit 提交一条留言
func (h *MessageHandler) HandleSubmit(ctx context.Context, c *app.RequestContext) {
	var req ContactRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, errorBody(MsgInvalidRequest))
		return
	}
	msg, err := h.log.Submit(ctx, req.Name, req.Email, req.Message)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusCreated, msg)
}

// HandleList 按时间倒序列出全部留言
func (h *MessageHandler) HandleList(ctx context.Context, c *app.RequestContext) {
	msgs, err := h.log.ListAll(ctx)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	if msgs == nil {
		msgs = []types.ContactMessage{}
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"messages": msgs,
		"total":    len(msgs),
	})
}

// HandleClear 清空留言
func (h *MessageHandler) HandleClear(ctx context.Context, c *app.RequestContext) {
	if err := h.log.ClearAll(ctx); err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]string{"status": "cleared"})
}
