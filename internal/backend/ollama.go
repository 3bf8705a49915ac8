package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOllamaURL is the address of a local Ollama server.
	DefaultOllamaURL = "http://localhost:11434"
	// BaseModel is used when no fine-tuning epochs are requested.
	BaseModel = "llama3.2:3b"
)

// OllamaOptions are the sampling options sent with every chat request.
type OllamaOptions struct {
	NumCtx      int     `json:"num_ctx" yaml:"numCtx"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	NumPredict  int     `json:"num_predict" yaml:"numPredict"`
	TopK        int     `json:"top_k" yaml:"topK"`
	TopP        float64 `json:"top_p" yaml:"topP"`
}

// DefaultOllamaOptions returns the options the evaluated models were tuned with.
func DefaultOllamaOptions() OllamaOptions {
	return OllamaOptions{NumCtx: 8000, Temperature: 0.2, NumPredict: 4096, TopK: 10, TopP: 0.5}
}

// OllamaBackend asks an Ollama server for schema-constrained chat completions.
type OllamaBackend struct {
	baseURL    string
	model      string
	options    OllamaOptions
	httpClient *http.Client
}

// NewOllamaBackend constructs a client for model on the server at baseURL.
func NewOllamaBackend(baseURL, model string, options OllamaOptions, timeout time.Duration) *OllamaBackend {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		options: options,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name implements Backend.
func (b *OllamaBackend) Name() string { return "ollama/" + b.model }

// Ping checks that the server answers and has the model pulled.
func (b *OllamaBackend) Ping(ctx context.Context) error {
	var response struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := getJSON(ctx, b.httpClient, b.baseURL+"/api/tags", nil, &response); err != nil {
		return fmt.Errorf("ollama tags request failed: %w", err)
	}
	for _, m := range response.Models {
		if m.Name == b.model || m.Model == b.model {
			return nil
		}
	}
	return fmt.Errorf("model %q is not available on %s", b.model, b.baseURL)
}

// Generate implements Backend.
func (b *OllamaBackend) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	prompt, err := RenderPrompt(req)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"model":    b.model,
		"messages": []map[string]string{{"role": "user", "content": prompt}},
		"stream":   false,
		"format":   Schema(req.Task),
		"options":  b.options,
	}

	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Error string `json:"error"`
	}
	if err := postJSON(ctx, b.httpClient, b.baseURL+"/api/chat", nil, payload, &response); err != nil {
		return nil, fmt.Errorf("ollama chat request failed: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("ollama chat request failed: %s", response.Error)
	}
	return answer(response.Message.Content)
}
