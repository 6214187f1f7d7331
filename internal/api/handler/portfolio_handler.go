package handler

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/processor"
	"ai-portfolio-go/internal/types"
)

// PortfolioHandler 生成与读取作品集
type PortfolioHandler struct {
	svc    *processor.PortfolioService
	logger zerolog.Logger
}

// NewPortfolioHandler 创建作品集处理器
func NewPortfolioHandler(svc *processor.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		svc:    svc,
		logger: logger.Component("portfolio_handler"),
	}
}

// GenerateRequest JSON 形式的生成请求
type GenerateRequest struct {
	Text string `json:"text"`
}

// PortfolioResponse 作品集响应
type PortfolioResponse struct {
	Version uint64                 `json:"version"`
	Record  *types.PortfolioRecord `json:"record"`
}

// HandleGenerate 接收简历文本（JSON）或PDF（multipart 的 file 字段）并生成作品集
func (h *PortfolioHandler) HandleGenerate(ctx context.Context, c *app.RequestContext) {
	var (
		record *types.PortfolioRecord
		err    error
	)

	if strings.HasPrefix(string(c.ContentType()), "multipart/form-data") {
		fileHeader, ferr := c.FormFile("file")
		if ferr != nil {
			c.JSON(consts.StatusBadRequest, errorBody("Please upload a PDF file."))
			return
		}
		file, ferr := fileHeader.Open()
		if ferr != nil {
			writeError(ctx, c, ferr)
			return
		}
		defer file.Close()

		h.logger.Info().Str("file", fileHeader.Filename).Int64("size", fileHeader.Size).Msg("收到PDF生成请求")
		record, err = h.svc.GenerateFromPDF(ctx, file, fileHeader.Filename)
	} else {
		var req GenerateRequest
		if jerr := json.Unmarshal(c.Request.Body(), &req); jerr != nil {
			c.JSON(consts.StatusBadRequest, errorBody(MsgInvalidRequest))
			return
		}
		h.logger.Info().Int("text_len", len(req.Text)).Msg("收到文本生成请求")
		record, err = h.svc.Generate(ctx, req.Text)
	}

	if err != nil {
		writeError(ctx, c, err)
		return
	}

	_, version, _ := h.svc.Current()
	c.JSON(consts.StatusOK, PortfolioResponse{Version: version, Record: record})
}

// HandleGetPortfolio 返回当前权威记录
func (h *PortfolioHandler) HandleGetPortfolio(ctx context.Context, c *app.RequestContext) {
	record, version, err := h.svc.Current()
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, PortfolioResponse{Version: version, Record: record})
}

// GenerationStatusResponse 生成状态，version 为 0 表示尚未加载记录
type GenerationStatusResponse struct {
	Generating bool   `json:"generating"`
	Version    uint64 `json:"version"`
}

// HandleGenerationStatus 查询是否有生成请求正在进行
func (h *PortfolioHandler) HandleGenerationStatus(_ context.Context, c *app.RequestContext) {
	_, version, _ := h.svc.Snapshot()
	c.JSON(consts.StatusOK, GenerationStatusResponse{Generating: h.svc.Generating(), Version: version})
}
