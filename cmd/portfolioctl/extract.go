package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ai-portfolio-go/internal/parser"
)

// 处理提取文本命令
func handleExtractCommand() {
	absPath, err := filepath.Abs(requireInput())
	if err != nil {
		fail("无法获取文件的绝对路径: %v", err)
	}
	fmt.Fprintf(os.Stderr, "准备处理PDF文件: %s\n", absPath)

	// 添加超时以防止无限等待
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	extractor, err := parser.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		fail("创建PDF提取器失败: %v", err)
	}

	start := time.Now()
	text, err := extractor.ExtractFromFile(ctx, absPath)
	if err != nil {
		fail("提取PDF文本失败: %v", err)
	}
	fmt.Fprintf(os.Stderr, "提取完成，耗时 %s，共 %d 字符\n", time.Since(start).Round(time.Millisecond), len([]rune(text)))

	if *maxLen >= 0 && len([]rune(text)) > *maxLen {
		text = string([]rune(text)[:*maxLen]) + "..."
	}
	writeOutput([]byte(text))
}
