package extract

import (
	"context"

	"github.com/archway-labs/scout-cli/pkg/anthropic"
)

// mockAnthropicClient returns canned responses in order, or err on every call.
type mockAnthropicClient struct {
	responses []string
	err       error

	calls   int
	prompts []string
}

func (m *mockAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.calls++
	if len(req.Messages) > 0 {
		m.prompts = append(m.prompts, req.Messages[0].Content)
	}
	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: m.responses[idx]}},
	}, nil
}
