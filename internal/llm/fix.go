package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const fixSystemPrompt = `You are a terminal error fixing assistant. Given an error message, provide a concise fix.

Rules:
- Return ONLY the command to fix the issue on one line
- Keep the explanation to one sentence
- Focus on the most likely fix first
- Consider the project context if provided

Format your response EXACTLY like this:
COMMAND: <the fix command>
EXPLANATION: <brief one-sentence explanation>`

const predictSystemPrompt = `You propose a single, safe shell command for the developer's intent.

Format your response EXACTLY like this:
COMMAND: <the command>
EXPLANATION: <brief one-sentence explanation>`

// Suggestion is a parsed model reply. Command is empty when the reply could
// not be parsed; Explanation then holds the raw text.
type Suggestion struct {
	Command     string `json:"command"`
	Explanation string `json:"explanation"`
}

// FixClient asks a Provider for fixes with a bounded timeout.
type FixClient struct {
	provider Provider
	timeout  time.Duration
	log      *zap.Logger
}

// NewFixClient wraps p. A nil provider is treated as NoOp.
func NewFixClient(p Provider, timeout time.Duration, log *zap.Logger) *FixClient {
	if p == nil {
		p = NoOp{}
	}
	return &FixClient{provider: p, timeout: timeout, log: log}
}

// Available reports whether a real model is behind this client.
func (c *FixClient) Available() bool { return Configured(c.provider) }

// Provider returns the wrapped provider name.
func (c *FixClient) Provider() string { return c.provider.Name() }

// installer is implemented by providers that host models locally.
type installer interface {
	Installed(ctx context.Context) (bool, error)
}

// Ready reports whether the provider's model can be used right now. Remote
// providers are assumed ready once configured; local ones are probed.
func (c *FixClient) Ready(ctx context.Context) (bool, error) {
	if !c.Available() {
		return false, nil
	}
	inst, ok := c.provider.(installer)
	if !ok {
		return true, nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return inst.Installed(ctx)
}

// GetFix asks the model for a command fixing errText.
func (c *FixClient) GetFix(ctx context.Context, errText string, contextTags []string) (Suggestion, error) {
	prompt := "Error: " + errText
	if len(contextTags) > 0 {
		prompt += "\n\nProject context: " + strings.Join(contextTags, ", ")
	}
	return c.ask(ctx, fixSystemPrompt, prompt)
}

// Predict asks the model for a command matching a natural-language intent.
func (c *FixClient) Predict(ctx context.Context, intent string, contextTags []string) (Suggestion, error) {
	prompt := "Intent: " + intent
	if len(contextTags) > 0 {
		prompt += "\n\nProject context: " + strings.Join(contextTags, ", ")
	}
	return c.ask(ctx, predictSystemPrompt, prompt)
}

func (c *FixClient) ask(ctx context.Context, system, prompt string) (Suggestion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.provider.Complete(ctx, system, prompt)
	if err != nil {
		return Suggestion{}, fmt.Errorf("%s: %w", c.provider.Name(), err)
	}
	c.log.Debug("model replied", zap.String("provider", c.provider.Name()), zap.Duration("took", time.Since(start)))
	return ParseSuggestion(text), nil
}

// ParseSuggestion reads a "COMMAND: ... / EXPLANATION: ..." reply, or a
// JSON object with command and explanation fields. Anything else becomes the
// explanation with no command.
func ParseSuggestion(text string) Suggestion {
	text = strings.TrimSpace(text)
	if text == "" {
		return Suggestion{}
	}

	var s Suggestion
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := cutPrefixFold(line, "COMMAND:"); ok && s.Command == "" {
			s.Command = unfence(v)
		} else if v, ok := cutPrefixFold(line, "EXPLANATION:"); ok && s.Explanation == "" {
			s.Explanation = v
		}
	}
	if s.Command != "" {
		return s
	}

	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(text, "```json"), "```"), "```"))
	var js Suggestion
	if err := json.Unmarshal([]byte(body), &js); err == nil && strings.TrimSpace(js.Command) != "" {
		js.Command = strings.TrimSpace(js.Command)
		return js
	}

	return Suggestion{Explanation: text}
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(prefix):]), true
}

// unfence strips inline code backticks a model may wrap a command in.
func unfence(s string) string {
	return strings.TrimSpace(strings.Trim(s, "`"))
}
