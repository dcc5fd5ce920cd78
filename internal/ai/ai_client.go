package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"mailtriage/internal/logger"
	"mailtriage/internal/metrics"
	"mailtriage/internal/service"
)

type aiClient struct {
	provider string
	apiKey   string
	client   *resty.Client
	logger   *logger.Logger
}

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
	ProviderMock     = "mock"
)

// MaxSummaryLength caps AI summaries, in runes.
const MaxSummaryLength = 150

type Option func(*aiClient)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(url string) Option {
	return func(a *aiClient) {
		a.client.SetBaseURL(url)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(a *aiClient) {
		a.client.SetTimeout(d)
	}
}

// NewAIClient returns the summarizer for provider. The mock provider needs no
// key and is used when none is configured.
func NewAIClient(provider, apiKey string, logger *logger.Logger, opts ...Option) service.AIClient {
	if provider == ProviderMock || apiKey == "" {
		logger.Warn("AI summaries disabled, using mock client")
		return NewMockAIClient()
	}

	client := &aiClient{
		provider: provider,
		apiKey:   apiKey,
		client: resty.New().
			SetBaseURL(getBaseURL(provider)).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second),
		logger: logger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// getBaseURL returns the appropriate API base URL based on the provider
func getBaseURL(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "https://api.deepseek.com"
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	default:
		return "https://api.openai.com/v1"
	}
}

// getModel returns the appropriate model based on the provider
func getModel(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderGemini:
		return "gemini-2.0-flash-lite"
	default:
		return "gpt-4o-mini"
	}
}

// OpenAI/DeepSeek API request/response structures
type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Gemini API request/response structures
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

const systemPrompt = "You write concise summaries of emails. Always answer in the language of the email and keep summaries under 150 characters."

func summaryPrompt(subject, body string) string {
	return fmt.Sprintf(`Write a short, useful summary of the following email.
The summary must:
- be at most 150 characters
- capture the main point of the message
- focus on the most important action or information

Subject: %s
Content: %s

Summary:`, subject, body)
}

func (a *aiClient) SummarizeEmail(ctx context.Context, subject, body string) (string, error) {
	start := time.Now()

	var summary string
	var err error
	switch a.provider {
	case ProviderGemini:
		summary, err = a.summarizeWithGemini(ctx, subject, body)
	default:
		summary, err = a.summarizeWithOpenAIStyle(ctx, subject, body)
	}

	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.RecordSummaryLatency(a.provider, status, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("failed to summarize email: %w", err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("empty summary returned by %s", a.provider)
	}
	a.logger.Debugf("Summarized email with %s", a.provider)
	return clip(summary, MaxSummaryLength), nil
}

func (a *aiClient) summarizeWithOpenAIStyle(ctx context.Context, subject, body string) (string, error) {
	request := chatCompletionRequest{
		Model: getModel(a.provider),
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: summaryPrompt(subject, body)},
		},
		MaxTokens:   100,
		Temperature: 0.3,
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(a.apiKey).
		SetBody(&request).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from AI")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (a *aiClient) summarizeWithGemini(ctx context.Context, subject, body string) (string, error) {
	request := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: summaryPrompt(subject, body)}}},
		},
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("key", a.apiKey).
		SetPathParam("model", getModel(a.provider)).
		SetBody(&request).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("Gemini API request failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(resp.Body(), &geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// clip cuts s to max runes, ending with "..." when shortened.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
