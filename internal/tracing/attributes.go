package tracing

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// span 属性值长度上限
const (
	DefaultMaxLength = 200
	MaxKeyLength     = 100
	MaxPreviewLength = 150
)

// 属性名包含这些关键字时值需要掩码
var sensitiveKeys = []string{"email", "phone", "password", "name", "secret", "token"}

// SafeString 构造可写入 span 的字符串属性。敏感属性掩码，其余截断到 maxLength
func SafeString(key, value string, maxLength int) attribute.KeyValue {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeys {
		if strings.Contains(lower, kw) {
			return attribute.String(key, Mask(value))
		}
	}
	return attribute.String(key, Truncate(value, maxLength))
}

// Mask 保留首尾字符，中间替换为 *。"jane@example.com" -> "ja************om"
func Mask(value string) string {
	runes := []rune(value)
	n := len(runes)
	keep := 2
	switch {
	case n == 0:
		return ""
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[:1]) + "*"
	case n <= 4:
		keep = 1
	}
	return string(runes[:keep]) + strings.Repeat("*", n-2*keep) + string(runes[n-keep:])
}

// Truncate 超长时保留首尾，中间以 "..." 连接
func Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	half := max((maxLength-3)/2, 1)
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}
