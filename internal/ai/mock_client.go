package ai

import (
	"context"
	"strings"
)

// MockAIClient is a mock implementation of AIClient for testing
type MockAIClient struct {
	SummarizeEmailFunc func(ctx context.Context, subject, body string) (string, error)
}

func NewMockAIClient() *MockAIClient {
	return &MockAIClient{}
}

func (m *MockAIClient) SummarizeEmail(ctx context.Context, subject, body string) (string, error) {
	if m.SummarizeEmailFunc != nil {
		return m.SummarizeEmailFunc(ctx, subject, body)
	}

	// Default mock behavior: the subject, clipped
	text := strings.TrimSpace(subject)
	if text == "" {
		text = strings.TrimSpace(body)
	}
	return clip(text, MaxSummaryLength), nil
}
