package types

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrValidation           = errors.New("输入校验失败")
	ErrGeneration           = errors.New("作品集内容生成失败")
	ErrInvalidCredentials   = errors.New("Invalid username or password.")
	ErrRecordNotLoaded      = errors.New("portfolio record not loaded")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrNotListSection       = errors.New("section is not a list")
	ErrGenerationInProgress = errors.New("generation already in progress")
)

// GenerationFailedMessage 生成失败时展示给用户的统一提示
const GenerationFailedMessage = "Failed to generate portfolio content from the provided text. Please check the format and try again."

// ValidationError 输入形态不合法。Message 可直接展示给用户
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError 构造校验错误
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// GenerationError 外部生成调用失败或返回数据不完整。
// Error() 只返回通用提示，技术细节通过 Unwrap/Detail 获取，仅用于日志
type GenerationError struct {
	Op    string
	Cause error
}

func (e *GenerationError) Error() string {
	return GenerationFailedMessage
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// Detail 返回供日志使用的技术细节
func (e *GenerationError) Detail() string {
	if e.Cause == nil {
		return fmt.Sprintf("操作:%s", e.Op)
	}
	return fmt.Sprintf("操作:%s: %v", e.Op, e.Cause)
}

// NewGenerationError 构造生成错误
func NewGenerationError(op string, cause error) error {
	return &GenerationError{Op: op, Cause: cause}
}
