package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/auth"
	"ai-portfolio-go/internal/logger"
)

// TokenContextKey 鉴权通过后会话令牌在请求上下文中的键
const TokenContextKey = "session_token"

// SessionToken 读取鉴权中间件写入的会话令牌
func SessionToken(c *app.RequestContext) string {
	return c.GetString(TokenContextKey)
}

// AuthHandler 登录与登出
type AuthHandler struct {
	gate    *auth.Gate
	editors *EditorHandler // 登出时释放对应编辑器，可为 nil
	logger  zerolog.Logger
}

// NewAuthHandler 创建鉴权处理器
func NewAuthHandler(gate *auth.Gate, editors *EditorHandler) *AuthHandler {
	return &AuthHandler{
		gate:    gate,
		editors: editors,
		logger:  logger.Component("auth_handler"),
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse 登录成功响应
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleLogin 校验固定凭据并签发会话令牌
func (h *AuthHandler) HandleLogin(ctx context.Context, c *app.RequestContext) {
	var req LoginRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, errorBody(MsgInvalidRequest))
		return
	}
	sess, err := h.gate.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, LoginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

// HandleLogout 结束会话，重复调用无副作用
func (h *AuthHandler) HandleLogout(ctx context.Context, c *app.RequestContext) {
	token := SessionToken(c)
	if err := h.gate.Logout(ctx, token); err != nil {
		writeError(ctx, c, err)
		return
	}
	if h.editors != nil {
		h.editors.Release(token)
	}
	c.JSON(consts.StatusOK, map[string]string{"status": "logged_out"})
}

// ValidateKey 作为 keyauth 的校验函数，令牌有效时写入请求上下文
func (h *AuthHandler) ValidateKey(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
	if h.gate.State(ctx, key) != auth.StateAuthenticated {
		return false, nil
	}
	c.Set(TokenContextKey, key)
	return true, nil
}

// Unauthorized 作为 keyauth 的错误处理函数
func (h *AuthHandler) Unauthorized(_ context.Context, c *app.RequestContext, err error) {
	h.logger.Debug().Err(err).Str("path", string(c.Path())).Msg("未授权访问")
	c.AbortWithStatusJSON(consts.StatusUnauthorized, errorBody(MsgUnauthorized))
}
