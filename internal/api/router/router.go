package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"ai-portfolio-go/internal/api/handler"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Portfolio *handler.PortfolioHandler
	Editor    *handler.EditorHandler
	Auth      *handler.AuthHandler
	Messages  *handler.MessageHandler
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, hs Handlers) {
	api := h.Group("/api/v1")

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	// 公开接口
	api.POST("/portfolio/generate", hs.Portfolio.HandleGenerate)
	api.GET("/portfolio", hs.Portfolio.HandleGetPortfolio)
	api.GET("/portfolio/status", hs.Portfolio.HandleGenerationStatus)
	api.POST("/auth/login", hs.Auth.HandleLogin)
	api.POST("/contact", hs.Messages.HandleSubmit)

	// 需要 Authorization: Bearer <token>
	guard := keyauth.New(
		keyauth.WithValidator(hs.Auth.ValidateKey),
		keyauth.WithErrorHandler(hs.Auth.Unauthorized),
	)

	api.POST("/auth/logout", guard, hs.Auth.HandleLogout)

	admin := api.Group("/admin", guard)
	admin.GET("/editor", hs.Editor.HandleGetWorking)
	admin.POST("/editor/ops", hs.Editor.HandleApply)
	admin.POST("/editor/image", hs.Editor.HandleImage)
	admin.POST("/editor/commit", hs.Editor.HandleCommit)
	admin.GET("/messages", hs.Messages.HandleList)
	admin.DELETE("/messages", hs.Messages.HandleClear)
}
