package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 写入 error.type 属性的错误分类
type ErrorType string

const (
	ErrorTypeDB         ErrorType = "db"
	ErrorTypeRedis      ErrorType = "redis"
	ErrorTypeLLM        ErrorType = "llm"
	ErrorTypeValidation ErrorType = "validation"
)

// RecordError 在 span 上记录错误并标记失败状态，err 为 nil 时不做任何事
func RecordError(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	attrs := append([]attribute.KeyValue{
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", Truncate(err.Error(), DefaultMaxLength)),
	}, attributes...)

	span.RecordError(err)
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, err.Error())
}
