package touch

import "sync"

// MockChannel 模拟触摸通道（用于测试和无硬件运行）
type MockChannel struct {
	mu       sync.Mutex
	requests []bool
	err      error
	closed   bool
}

// NewMockChannel 创建模拟通道
func NewMockChannel() *MockChannel {
	return &MockChannel{}
}

// SetTouchMode 记录请求，返回预设的错误
func (m *MockChannel) SetTouchMode(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, enabled)
	return m.err
}

// FailWith 之后的请求都返回err
func (m *MockChannel) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Requests 已收到的请求
func (m *MockChannel) Requests() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bool, len(m.requests))
	copy(out, m.requests)
	return out
}

// Closed 是否已关闭
func (m *MockChannel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close 实现Channel接口
func (m *MockChannel) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
