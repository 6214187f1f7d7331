package handler

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/types"
)

// 面向用户的固定提示
const (
	MsgRecordNotLoaded      = "No portfolio data is available yet. Generate one first."
	MsgGenerationInProgress = "A portfolio is already being generated. Please wait."
	MsgInvalidRequest       = "Invalid request body."
	MsgUnauthorized         = "Please log in to continue."
	MsgInternal             = "Something went wrong. Please try again."
)

// errorBody 统一的错误响应
func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError 将领域错误映射为 HTTP 状态码和简短提示
func writeError(ctx context.Context, c *app.RequestContext, err error) {
	status, msg := classify(err)
	if status >= consts.StatusInternalServerError {
		logger.Ctx(ctx).Error().Err(err).Str("path", string(c.Path())).Msg("请求处理失败")
	}
	c.JSON(status, errorBody(msg))
}

func classify(err error) (int, string) {
	var vErr *types.ValidationError
	switch {
	case errors.As(err, &vErr):
		return consts.StatusBadRequest, vErr.Message
	case errors.Is(err, types.ErrInvalidCredentials):
		return consts.StatusUnauthorized, types.ErrInvalidCredentials.Error()
	case errors.Is(err, types.ErrRecordNotLoaded):
		return consts.StatusNotFound, MsgRecordNotLoaded
	case errors.Is(err, types.ErrGenerationInProgress):
		return consts.StatusConflict, MsgGenerationInProgress
	case errors.Is(err, types.ErrGeneration):
		return consts.StatusBadGateway, types.GenerationFailedMessage
	case errors.Is(err, types.ErrIndexOutOfRange), errors.Is(err, types.ErrNotListSection):
		return consts.StatusBadRequest, err.Error()
	default:
		return consts.StatusInternalServerError, MsgInternal
	}
}
