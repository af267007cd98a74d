package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultAnthropicURL   = "https://api.anthropic.com/v1"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicVersion      = "2023-06-01"
	anthropicMaxTokens    = 300
)

// Anthropic calls the Anthropic Messages API. The key is always supplied by
// the operator.
type Anthropic struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     *zap.Logger
}

// NewAnthropic creates an Anthropic client. Empty model and baseURL select
// the defaults.
func NewAnthropic(apiKey, model, baseURL string, log *zap.Logger) *Anthropic {
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
		log:     log,
	}
}

func (c *Anthropic) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one user message with a system prompt.
func (c *Anthropic) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", transportErr("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", transportErr("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	c.log.Debug("anthropic request", zap.String("model", c.model), zap.Int("prompt_len", len(prompt)))
	resp, err := c.client.Do(req)
	if err != nil {
		return "", transportErr("anthropic request: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportErr("read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", transportErr("anthropic returned %d: %s", resp.StatusCode, truncate(string(data), 512))
	}

	var out anthropicResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", transportErr("decode response: %v", err)
	}
	if out.Error != nil {
		return "", transportErr("anthropic error: %s", out.Error.Message)
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(text.String()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
