package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAnthropicBase   = "https://api.anthropic.com"
	defaultAnthropicModel  = "claude-3-5-haiku-latest"
	anthropicVersion       = "2023-06-01"
	defaultAnthropicTokens = 500
)

// AnthropicConfig configures the Anthropic messages provider.
type AnthropicConfig struct {
	// APIKey is sent in the x-api-key header.
	APIKey string

	// BaseURL overrides the API endpoint. Defaults to
	// https://api.anthropic.com when empty.
	BaseURL string

	// Model is the model to use. Defaults to claude-3-5-haiku-latest.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 15 s.
	Timeout time.Duration
}

// anthropicProvider implements Provider using the Anthropic messages API.
type anthropicProvider struct {
	cfg    AnthropicConfig
	client *http.Client
}

// NewAnthropic returns a Provider backed by the Anthropic messages API.
func NewAnthropic(cfg AnthropicConfig) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &anthropicProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

// --- minimal Anthropic wire types ---

type antMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type antRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Messages    []antMessage `json:"messages"`
	Temperature float64      `json:"temperature,omitempty"`
}

type antResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the request to the messages endpoint. Unlike the OpenAI
// API, the system prompt travels in its own top-level field and max_tokens
// is mandatory.
func (p *anthropicProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	messages := make([]antMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		messages = append(messages, antMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, antMessage{Role: "user", Content: req.UserText})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicTokens
	}

	body := antRequest{
		Model:       p.cfg.Model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/messages",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close()
	latency := time.Since(start).Milliseconds()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimit
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response body: %w", err)
	}

	var antResp antResponse
	if err := json.Unmarshal(respBody, &antResp); err != nil {
		return nil, fmt.Errorf("llm: decode API response: %w", err)
	}
	if antResp.Error != nil {
		return nil, fmt.Errorf("llm: API error (%s): %s", antResp.Error.Type, antResp.Error.Message)
	}

	var text string
	for _, block := range antResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, ErrEmptyCompletion
	}

	out := &Completion{Text: text, Provider: p.Name()}
	if antResp.Usage != nil {
		out.Usage = &TokenUsage{
			PromptTokens:     antResp.Usage.InputTokens,
			CompletionTokens: antResp.Usage.OutputTokens,
			TotalTokens:      antResp.Usage.InputTokens + antResp.Usage.OutputTokens,
			Model:            antResp.Model,
			LatencyMS:        latency,
		}
	}
	return out, nil
}
