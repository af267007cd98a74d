package llm

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGemini creates a Gemini client. baseURL is only set in tests and
// proxies.
func NewGemini(ctx context.Context, apiKey, model, baseURL string, log *zap.Logger) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, transportErr("create gemini client: %v", err)
	}
	return &Gemini{client: client, model: model, log: log}, nil
}

func (c *Gemini) Name() string { return "gemini" }

// Complete generates a reply for prompt under the system instruction.
func (c *Gemini) Complete(ctx context.Context, system, prompt string) (string, error) {
	var gc *genai.GenerateContentConfig
	if system != "" {
		gc = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	c.log.Debug("gemini request", zap.String("model", c.model), zap.Int("prompt_len", len(prompt)))
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), gc)
	if err != nil {
		return "", transportErr("gemini generate: %v", err)
	}
	return resp.Text(), nil
}
