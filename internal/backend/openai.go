package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

const (
	DefaultOpenAIURL = "https://api.openai.com/v1"
	OpenAIModel      = "gpt-4.1-mini"
	openAITemp       = 0.2
)

// OpenAIBackend requests strict json_schema chat completions.
type OpenAIBackend struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIBackend requires a non-empty apiKey.
func NewOpenAIBackend(baseURL, model, apiKey string, timeout time.Duration) (*OpenAIBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, utils.NewAppError("backend.NewOpenAIBackend", APIKeyEnv+" is not set", utils.ErrMissingAPIKey)
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenAIURL
	}
	if model == "" {
		model = OpenAIModel
	}
	return &OpenAIBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return "openai/" + b.model }

// Generate implements Backend.
func (b *OpenAIBackend) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	prompt, err := RenderPrompt(req)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"model":       b.model,
		"temperature": openAITemp,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   string(req.Task),
				"strict": true,
				"schema": Schema(req.Task),
			},
		},
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + b.apiKey}
	if err := postJSON(ctx, b.httpClient, b.baseURL+"/chat/completions", headers, payload, &response); err != nil {
		return nil, fmt.Errorf("openai chat request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	msg := response.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("openai refused: %s", msg.Refusal)
	}
	return answer(msg.Content)
}
