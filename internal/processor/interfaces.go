package processor

import (
	"context"
	"io"

	"ai-portfolio-go/internal/types"
)

// PortfolioGenerator 把简历文本转换为作品集记录
type PortfolioGenerator interface {
	Generate(ctx context.Context, text string) (*types.PortfolioRecord, error)
}

// TextExtractor 从上传文件中提取纯文本
type TextExtractor interface {
	ExtractText(ctx context.Context, reader io.Reader, uri string) (string, error)
}

// 权威记录替换来源
const (
	SourceGenerate = "generate"
	SourceCommit   = "commit"
	SourceLoad     = "load"
)

// ReplaceEvent 一次权威记录替换
type ReplaceEvent struct {
	Record  *types.PortfolioRecord // 深拷贝，钩子可自由使用
	Version uint64
	Source  string
}

// ReplaceHook 权威记录替换后的回调，失败只记录日志
type ReplaceHook func(ctx context.Context, ev ReplaceEvent) error
