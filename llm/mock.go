package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// MockClient returns canned completions keyed on prompt content. It is
// deterministic so dispatch-order tests can compare parallel and sequential
// runs.
type MockClient struct {
	// Responses maps a substring of the user prompt to the reply. The
	// first match in Order wins.
	Responses map[string]string
	// Order fixes the substring match order.
	Order []string
	// Default is returned when nothing matches.
	Default string
	// Err, when set, is returned by every call.
	Err error

	calls atomic.Int64
}

// NewMockClient builds a mock that always answers with reply.
func NewMockClient(reply string) *MockClient {
	return &MockClient{Default: reply}
}

// Calls returns how many completions were requested.
func (m *MockClient) Calls() int64 {
	return m.calls.Load()
}

func (m *MockClient) Chat(ctx context.Context, system, user string) (string, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return "", m.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, key := range m.Order {
		if strings.Contains(user, key) {
			return m.Responses[key], nil
		}
	}
	for key, reply := range m.Responses {
		if strings.Contains(user, key) {
			return reply, nil
		}
	}
	if m.Default != "" {
		return m.Default, nil
	}
	return fmt.Sprintf("mock completion %d", m.calls.Load()), nil
}
