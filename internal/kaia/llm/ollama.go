package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaBase  = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// OllamaConfig configures the local Ollama provider.
type OllamaConfig struct {
	// BaseURL is the Ollama server address. Defaults to
	// http://localhost:11434 when empty.
	BaseURL string

	// Model is the local model to use. Defaults to llama3.2.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 15 s. Local models
	// can be slow on first load; raise this when the model is large.
	Timeout time.Duration
}

// ollamaProvider implements Provider against the Ollama generate API.
// Ollama has no authentication and reports no token usage, so completions
// carry estimated counts.
type ollamaProvider struct {
	cfg    OllamaConfig
	client *http.Client
}

// NewOllama returns a Provider backed by a local Ollama server.
func NewOllama(cfg OllamaConfig) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &ollamaProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *ollamaProvider) Name() string { return "ollama" }

// --- minimal Ollama wire types ---

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Complete sends the request to the generate endpoint. The generate API is
// single-prompt rather than chat-shaped, so history is flattened into the
// prompt text.
func (p *ollamaProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	body := ollamaRequest{
		Model:  p.cfg.Model,
		Prompt: flattenHistory(req.History, req.UserText),
		System: req.System,
		Stream: false,
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		body.Options = &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/api/generate",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close()
	latency := time.Since(start).Milliseconds()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response body: %w", err)
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return nil, fmt.Errorf("llm: decode API response: %w", err)
	}
	if ollamaResp.Error != "" {
		return nil, fmt.Errorf("llm: API error: %s", ollamaResp.Error)
	}

	text := strings.TrimSpace(ollamaResp.Response)
	if text == "" {
		return nil, ErrEmptyCompletion
	}

	return &Completion{
		Text:     text,
		Provider: p.Name(),
		Usage: &TokenUsage{
			PromptTokens:     EstimateTokens(body.System + body.Prompt),
			CompletionTokens: EstimateTokens(text),
			TotalTokens:      EstimateTokens(body.System+body.Prompt) + EstimateTokens(text),
			Model:            ollamaResp.Model,
			LatencyMS:        latency,
		},
	}, nil
}

// flattenHistory renders chat history into a single prompt for APIs that do
// not accept structured messages.
func flattenHistory(history []Message, userText string) string {
	if len(history) == 0 {
		return userText
	}
	var sb strings.Builder
	for _, m := range history {
		switch m.Role {
		case "assistant":
			sb.WriteString("Assistant: ")
		default:
			sb.WriteString("User: ")
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(userText)
	sb.WriteString("\nAssistant:")
	return sb.String()
}
