package ai

import (
	"context"
	"sync"
	"time"
)

// MockLLMService is a mock implementation of LLMService for testing.
type MockLLMService struct {
	mu sync.Mutex

	// Response is returned by Chat and ChatJSON when Err is nil.
	Response string
	// Err, when set, is returned instead of Response.
	Err error
	// Delay simulates provider latency; it honours context cancellation.
	Delay time.Duration

	calls    int
	messages [][]Message
	schemas  []*ResponseSchema
}

// NewMockLLMService creates a mock answering with response.
func NewMockLLMService(response string) *MockLLMService {
	return &MockLLMService{Response: response}
}

// Chat returns the configured response.
func (m *MockLLMService) Chat(ctx context.Context, messages []Message) (string, error) {
	return m.ChatJSON(ctx, messages, nil)
}

// ChatJSON returns the configured response and records the call.
func (m *MockLLMService) ChatJSON(ctx context.Context, messages []Message, schema *ResponseSchema) (string, error) {
	m.mu.Lock()
	m.calls++
	m.messages = append(m.messages, messages)
	m.schemas = append(m.schemas, schema)
	delay, resp, err := m.Delay, m.Response, m.Err
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if err != nil {
		return "", err
	}
	return resp, nil
}

// Calls returns how many requests were made.
func (m *MockLLMService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastMessages returns the messages of the most recent request.
func (m *MockLLMService) LastMessages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

// LastSchema returns the schema of the most recent request.
func (m *MockLLMService) LastSchema() *ResponseSchema {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.schemas) == 0 {
		return nil
	}
	return m.schemas[len(m.schemas)-1]
}

var _ LLMService = (*MockLLMService)(nil)
