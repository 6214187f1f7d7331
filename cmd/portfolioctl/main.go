package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"ai-portfolio-go/internal/config"
	appCoreLogger "ai-portfolio-go/internal/logger"
)

// 命令行参数定义
var (
	command    = pflag.String("cmd", "generate", "执行的命令: generate=生成作品集, validate=校验记录文件, extract=提取PDF文本, init-config=生成示例配置")
	inputFile  = pflag.StringP("in", "i", "", "输入文件路径")
	outputFile = pflag.StringP("out", "o", "", "输出文件路径，为空时打印到标准输出")
	configPath = pflag.StringP("config", "c", "", "配置文件路径")
	maxLen     = pflag.Int("maxlen", -1, "extract 命令显示的文本最大长度，-1 显示全部")
)

func main() {
	pflag.Parse()
	_ = godotenv.Load()

	if *command == "init-config" {
		handleInitConfigCommand()
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fail("加载配置失败: %v", err)
	}
	if _, err := appCoreLogger.Init(appCoreLogger.Config{Level: cfg.Logger.Level, Format: "pretty"}); err != nil {
		fail("初始化日志失败: %v", err)
	}

	switch *command {
	case "generate":
		handleGenerateCommand(cfg)
	case "validate":
		handleValidateCommand()
	case "extract":
		handleExtractCommand()
	default:
		fmt.Fprintf(os.Stderr, "错误: 未知命令 '%s'。支持的命令: generate, validate, extract, init-config\n", *command)
		pflag.Usage()
		os.Exit(1)
	}
}

func requireInput() string {
	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "错误: 必须通过 -in 提供输入文件")
		pflag.Usage()
		os.Exit(1)
	}
	return *inputFile
}

func writeOutput(data []byte) {
	if *outputFile == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
		fail("写入输出文件失败: %v", err)
	}
	fmt.Printf("结果已保存到: %s\n", *outputFile)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func handleInitConfigCommand() {
	path := *outputFile
	if path == "" {
		path = "config.yaml"
	}
	if err := config.CreateSampleConfig(path); err != nil {
		fail("生成示例配置失败: %v", err)
	}
	fmt.Printf("示例配置已写入: %s\n", path)
}
