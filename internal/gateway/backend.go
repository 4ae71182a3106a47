// Package gateway produces participant utterances from text-generation
// backends. A Gateway fronts a preferred and an optional fallback backend
// with per-request timeouts, one retry per backend, response validation,
// and shared health state so a dead preferred backend is not re-tried on
// every turn.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/roundtable-dev/roundtable/internal/errors"
)

// Request is one generation call: a persona system prompt plus the
// assembled conversation prompt.
type Request struct {
	System string
	Prompt string
}

// UtteranceResult is a validated generation outcome.
type UtteranceResult struct {
	Text    string
	Backend string
	Latency time.Duration
}

// Backend produces raw text for a request. Implementations must honor
// context cancellation.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// NewBackend builds a named backend from configuration.
func NewBackend(name string, cfg *config.BackendsConfig) (Backend, error) {
	switch strings.ToLower(name) {
	case "ollama":
		return NewOllamaBackend(cfg.Ollama), nil
	case "openrouter":
		return NewOpenRouterBackend(cfg.OpenRouter), nil
	default:
		return nil, errors.Wrapf(errors.ErrUnknownBackend, "gateway: %q", name)
	}
}

// NewFromConfig builds a Gateway with the configured preferred and fallback
// backends.
func NewFromConfig(cfg *config.BackendsConfig) (*Gateway, error) {
	preferred, err := NewBackend(cfg.Preferred, cfg)
	if err != nil {
		return nil, err
	}

	var fallback Backend
	if cfg.Fallback != "" {
		fallback, err = NewBackend(cfg.Fallback, cfg)
		if err != nil {
			return nil, err
		}
	}

	return New(preferred, fallback, Options{
		RequestTimeout:   cfg.RequestTimeout(),
		RetryBackoff:     cfg.RetryBackoff(),
		MaxResponseChars: cfg.MaxResponseChars,
	}), nil
}

// httpClient is shared across backends; per-request deadlines come from the
// caller's context, not a client timeout.
var httpClient = &http.Client{}
