package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// ollamaCompleter talks to a local Ollama server over its native chat API.
type ollamaCompleter struct {
	baseURL string
	model   string
	httpc   *http.Client
}

var _ Completer = (*ollamaCompleter)(nil)

func newOllama(opts Options) *ollamaCompleter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := opts.Model
	if model == "" {
		model = "qwen2.5:3b"
	}
	return &ollamaCompleter{
		baseURL: baseURL,
		model:   model,
		httpc:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// Complete implements Completer. format=json nudges the model into emitting
// a parseable object; the Client's retry loop covers the rest.
func (c *ollamaCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var messages []ollamaMessage
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: req.User})

	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Format:   "json",
		Options:  map[string]any{"temperature": 0},
	})
	if err != nil {
		return "", fmt.Errorf("ollama: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama api error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama api error: status %d", resp.StatusCode)
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	return out.Message.Content, nil
}

// Ping reports whether the Ollama server answers its tags endpoint. Used by
// backend auto-detection at startup.
func (c *ollamaCompleter) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
