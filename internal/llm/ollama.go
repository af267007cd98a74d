package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Ollama calls a local Ollama /api/chat endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	log     *zap.Logger
}

// NewOllama creates a client targeting the given Ollama instance and model.
func NewOllama(baseURL, model string, log *zap.Logger) *Ollama {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
		log:     log,
	}
}

func (c *Ollama) Name() string { return "ollama" }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

// Complete sends a system and user message to Ollama and returns the
// assistant's reply.
func (c *Ollama) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []Message{{Role: "user", Content: prompt}}
	if system != "" {
		messages = append([]Message{{Role: "system", Content: system}}, messages...)
	}
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", transportErr("marshal chat request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", transportErr("build chat request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("ollama chat", zap.String("model", c.model), zap.Int("prompt_len", len(prompt)))
	resp, err := c.client.Do(req)
	if err != nil {
		return "", transportErr("ollama chat request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", transportErr("ollama chat returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", transportErr("decode chat response: %v", err)
	}
	return result.Message.Content, nil
}

// OllamaModel is a model installed in the local Ollama instance.
type OllamaModel struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type tagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// Models lists the models installed in the Ollama instance.
func (c *Ollama) Models(ctx context.Context) ([]OllamaModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, transportErr("build tags request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportErr("connect to ollama: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, transportErr("ollama /api/tags returned %d", resp.StatusCode)
	}

	var result tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, transportErr("decode tags response: %v", err)
	}
	return result.Models, nil
}

// Installed reports whether the configured model is pulled. Ollama reports
// untagged models with a ":latest" suffix.
func (c *Ollama) Installed(ctx context.Context) (bool, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.Name == c.model || m.Name == c.model+":latest" {
			return true, nil
		}
	}
	return false, nil
}
