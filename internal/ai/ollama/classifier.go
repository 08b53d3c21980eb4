package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rensmac/govassist/internal/ai"
)

// Provider implements ai.Provider against a local Ollama instance
type Provider struct {
	host   string
	model  string
	client *http.Client
}

// NewProvider creates a new Ollama provider
func NewProvider(host, model string) *Provider {
	if model == "" {
		model = "llama3"
	}
	return &Provider{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "ollama"
}

// IsConfigured checks if provider has a host configured
func (p *Provider) IsConfigured() bool {
	return p.host != ""
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Classify determines the intent and topic of a user message
func (p *Provider) Classify(ctx context.Context, message string) (*ai.Result, error) {
	prompt := ai.BuildClassificationPrompt(message)

	ollamaReq := ollamaRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": 0.0,
		},
	}

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return ai.ParseResult(ollamaResp.Response)
}
