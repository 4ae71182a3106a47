package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/roundtable-dev/roundtable/internal/errors"
)

// OpenRouterBackend generates text against the hosted OpenRouter API using
// the OpenAI-compatible chat completions endpoint.
type OpenRouterBackend struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewOpenRouterBackend creates an OpenRouter backend from config. The API
// key falls back to the OPENROUTER_API_KEY environment variable when the
// config leaves it empty.
func NewOpenRouterBackend(cfg config.OpenRouterConfig) *OpenRouterBackend {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	return &OpenRouterBackend{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  apiKey,
		client:  httpClient,
	}
}

func (o *OpenRouterBackend) Name() string { return "openrouter" }

// chatMessage is one turn in a chat completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatResponse is the subset of the completions response we consume.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate performs a single chat completion.
func (o *OpenRouterBackend) Generate(ctx context.Context, req Request) (string, error) {
	if o.apiKey == "" {
		return "", errors.New("openrouter: API key not configured")
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{Model: o.model, Messages: messages})
	if err != nil {
		return "", errors.Wrapf(err, "openrouter: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrapf(err, "openrouter: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrapf(err, "openrouter: request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", errors.Wrapf(err, "openrouter: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("openrouter: status %d: %s", resp.StatusCode, truncateForError(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", errors.Wrapf(err, "openrouter: decode response")
	}
	if parsed.Error != nil {
		return "", errors.Newf("openrouter: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openrouter: response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
