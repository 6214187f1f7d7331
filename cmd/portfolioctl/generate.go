package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/parser"
	"ai-portfolio-go/internal/processor"
)

// 处理生成命令。输入为 .pdf 时先提取文本
func handleGenerateCommand(cfg *config.Config) {
	path := requireInput()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	text, err := readResumeText(ctx, path)
	if err != nil {
		fail("读取输入失败: %v", err)
	}

	generator, err := processor.NewGeneratorFromConfig(ctx, cfg.LLM)
	if err != nil {
		fail("初始化生成器失败: %v", err)
	}

	fmt.Fprintf(os.Stderr, "使用 %s 后端生成作品集 (输入 %d 字符)...\n", cfg.LLM.Provider, len(text))
	start := time.Now()
	record, err := generator.Generate(ctx, text)
	if err != nil {
		fail("生成失败: %v", err)
	}
	fmt.Fprintf(os.Stderr, "生成完成，耗时 %s\n", time.Since(start).Round(time.Millisecond))

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		fail("序列化结果失败: %v", err)
	}
	writeOutput(data)
}

func readResumeText(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		extractor, err := parser.NewEinoPDFTextExtractor(ctx)
		if err != nil {
			return "", err
		}
		return extractor.ExtractFromFile(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
