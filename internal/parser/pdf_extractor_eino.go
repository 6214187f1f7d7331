package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/logger"
)

const defaultPDFParseTimeout = 30 * time.Second

// ErrEmptyPDFText PDF中没有可提取的文字（常见于扫描件）
var ErrEmptyPDFText = errors.New("no extractable text in PDF")

// EinoPDFTextExtractor 使用 Eino PDF Parser 把上传的简历PDF转换为纯文本
type EinoPDFTextExtractor struct {
	parser  *pdf.PDFParser
	timeout time.Duration
	logger  zerolog.Logger
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithEinoLogger 配置日志记录器
func WithEinoLogger(l zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		e.logger = l
	}
}

// WithParseTimeout 设置单次解析超时
func WithParseTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEinoPDFTextExtractor 初始化提取器，不按页面分割
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("创建 Eino PDF 解析器失败: %w", err)
	}

	e := &EinoPDFTextExtractor{
		parser:  p,
		timeout: defaultPDFParseTimeout,
		logger:  logger.Component("pdf_extractor"),
	}
	for _, option := range options {
		option(e)
	}
	return e, nil
}

// ExtractText 从 reader 中提取全部文本。uri 仅用于日志和文档元数据
func (e *EinoPDFTextExtractor) ExtractText(ctx context.Context, reader io.Reader, uri string) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{"source": uri}),
	)
	if err != nil {
		e.logger.Error().Err(err).Str("uri", uri).Dur("elapsed", time.Since(start)).Msg("PDF解析失败")
		return "", fmt.Errorf("解析PDF失败 %s: %w", uri, err)
	}

	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(doc.Content)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		e.logger.Warn().Str("uri", uri).Int("documents", len(docs)).Msg("PDF中没有可提取的文字")
		return "", ErrEmptyPDFText
	}

	e.logger.Info().Str("uri", uri).Int("chars", len(text)).Dur("elapsed", time.Since(start)).Msg("PDF文本提取完成")
	return text, nil
}

// ExtractTextFromBytes 从字节数组提取文本
func (e *EinoPDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return e.ExtractText(ctx, bytes.NewReader(data), uri)
}

// ExtractFromFile 从本地文件提取文本，供命令行工具使用
func (e *EinoPDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件失败 %s: %w", filePath, err)
	}
	defer file.Close()

	if info, statErr := file.Stat(); statErr == nil {
		e.logger.Debug().Str("file", filePath).Int64("size", info.Size()).Msg("开始处理PDF文件")
	}
	return e.ExtractText(ctx, file, filePath)
}
