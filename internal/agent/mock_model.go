package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义了 MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatModel 测试用的 model.ToolCallingChatModel 实现。
// 按顺序返回预设响应，最后一条响应会被重复使用
type MockChatModel struct {
	mu        sync.Mutex
	responses []MockResponse
	index     int
	calls     int
	received  [][]*schema.Message

	// Block 非空时 Generate 会等待该通道关闭或 ctx 结束，用于并发测试
	Block chan struct{}
}

// NewMockChatModel 创建一个返回固定响应的模拟模型
func NewMockChatModel(content string, err error) *MockChatModel {
	return NewMockChatModelSequential([]MockResponse{{Content: content, Error: err}})
}

// NewMockChatModelSequential 创建一个按顺序返回不同响应的模拟模型
func NewMockChatModelSequential(responses []MockResponse) *MockChatModel {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock model has no responses configured")}}
	}
	return &MockChatModel{responses: responses}
}

// Generate 返回下一条预设响应
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls++
	msgs := make([]*schema.Message, len(input))
	copy(msgs, input)
	m.received = append(m.received, msgs)
	resp := m.responses[m.index]
	if m.index < len(m.responses)-1 {
		m.index++
	}
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 以单个分片返回 Generate 的结果
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools 生成场景不使用工具
func (m *MockChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

// WithTools 生成场景不使用工具，返回自身
func (m *MockChatModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls 返回 Generate 被调用的次数
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ReceivedMessages 返回每次调用收到的消息
func (m *MockChatModel) ReceivedMessages() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

var _ model.ToolCallingChatModel = (*MockChatModel)(nil)
