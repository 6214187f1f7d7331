package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"ai-portfolio-go/internal/types"
)

// 处理校验命令：先按 JSON Schema 校验原始文件，再检查记录不变量
func handleValidateCommand() {
	path := requireInput()
	data, err := os.ReadFile(path)
	if err != nil {
		fail("读取文件失败: %v", err)
	}

	schemaLoader := gojsonschema.NewGoLoader(types.PortfolioSchema().ToJSONSchema())
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		fail("JSON 解析失败: %v", err)
	}

	violations := 0
	for _, desc := range result.Errors() {
		fmt.Printf("  - schema: %s\n", desc.String())
		violations++
	}

	var record types.PortfolioRecord
	if err := json.Unmarshal(data, &record); err != nil {
		fail("解析作品集记录失败: %v", err)
	}
	if err := record.Validate(); err != nil {
		var vErr *types.ValidationError
		if errors.As(err, &vErr) {
			fmt.Printf("  - %s: %s\n", vErr.Field, vErr.Message)
		} else {
			fmt.Printf("  - %v\n", err)
		}
		violations++
	}

	if violations > 0 {
		fmt.Printf("校验未通过: %d 处问题\n", violations)
		os.Exit(1)
	}
	fmt.Println("校验通过")
}
