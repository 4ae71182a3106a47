package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/roundtable-dev/roundtable/internal/errors"
)

// OllamaBackend generates text against a local Ollama server via its
// /api/generate endpoint.
type OllamaBackend struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaBackend creates an Ollama backend from config.
func NewOllamaBackend(cfg config.OllamaConfig) *OllamaBackend {
	return &OllamaBackend{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  httpClient,
	}
}

func (o *OllamaBackend) Name() string { return "ollama" }

// ollamaRequest is the /api/generate request body.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

// ollamaResponse is the non-streaming /api/generate response body.
type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate performs a single non-streaming completion.
func (o *OllamaBackend) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	})
	if err != nil {
		return "", errors.Wrapf(err, "ollama: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrapf(err, "ollama: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrapf(err, "ollama: request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", errors.Wrapf(err, "ollama: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("ollama: status %d: %s", resp.StatusCode, truncateForError(data))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", errors.Wrapf(err, "ollama: decode response")
	}
	if parsed.Error != "" {
		return "", errors.Newf("ollama: %s", parsed.Error)
	}
	return parsed.Response, nil
}

// truncateForError shortens a response body for inclusion in an error message.
func truncateForError(data []byte) string {
	const max = 200
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
