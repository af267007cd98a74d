// Package llm talks to the optional remote model used as the last fix layer.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hindsight/internal/config"
)

var (
	// ErrNotConfigured is returned by the no-op provider.
	ErrNotConfigured = errors.New("no model configured")
	// ErrTransport wraps network failures, non-2xx replies and undecodable
	// bodies.
	ErrTransport = errors.New("model transport error")
)

// Provider completes a single prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// NoOp is the provider used when no model is configured.
type NoOp struct{}

func (NoOp) Name() string { return config.ProviderNone }

func (NoOp) Complete(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func transportErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransport, fmt.Sprintf(format, args...))
}

// New builds the provider selected by cfg. A provider without its
// credential falls back to NoOp.
func New(ctx context.Context, cfg config.ModelConfig, log *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			log.Warn("anthropic selected but no API key set")
			return NoOp{}, nil
		}
		return NewAnthropic(cfg.APIKey, cfg.Name, cfg.BaseURL, log), nil
	case config.ProviderGemini:
		if cfg.APIKey == "" {
			log.Warn("gemini selected but no API key set")
			return NoOp{}, nil
		}
		return NewGemini(ctx, cfg.APIKey, cfg.Name, cfg.BaseURL, log)
	case config.ProviderOllama:
		return NewOllama(cfg.BaseURL, cfg.Name, log), nil
	case config.ProviderNone, config.ProviderAuto:
		return NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// Configured reports whether p can actually reach a model.
func Configured(p Provider) bool {
	if p == nil {
		return false
	}
	_, noop := p.(NoOp)
	return !noop
}
