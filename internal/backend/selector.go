package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

// Provider names an inference back-end family.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderRules  Provider = "rules"
)

// MaxEpochs is the largest fine-tuning epoch count with a published model.
const MaxEpochs = 10

// ParseProvider accepts a provider name in any casing.
func ParseProvider(value string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(value))); p {
	case ProviderOllama, ProviderOpenAI, ProviderRules:
		return p, nil
	default:
		return "", utils.NewAppError("backend.ParseProvider", fmt.Sprintf("unknown provider %q", value), utils.ErrInvalidArgument)
	}
}

// ModelFor names the Ollama model evaluated for mode after epochs of fine-tuning.
func ModelFor(mode models.Mode, epochs int) (string, error) {
	if epochs < 0 || epochs > MaxEpochs {
		return "", utils.NewAppError("backend.ModelFor", fmt.Sprintf("epochs must be within 0..%d, got %d", MaxEpochs, epochs), utils.ErrInvalidArgument)
	}
	if epochs == 0 {
		return BaseModel, nil
	}
	switch mode {
	case models.ModeLogs:
		return fmt.Sprintf("bruteLlama3B_%dep_Q4_K_M.gguf:latest", epochs), nil
	case models.ModeFlows:
		return fmt.Sprintf("secLlama3B_%dep_Q4_K_M.gguf:latest", epochs), nil
	default:
		return "", utils.NewAppError("backend.ModelFor", fmt.Sprintf("unknown mode %q", mode), utils.ErrInvalidArgument)
	}
}

// Options select and configure the back-end of one run.
type Options struct {
	Provider      Provider
	Epochs        int
	Timeout       time.Duration
	OllamaURL     string
	OllamaOptions OllamaOptions
	OpenAIURL     string
	OpenAIModel   string
	EnvFile       string
	RulesPath     string
}

// New constructs the back-end for mode and checks that it is ready. Callers wrap it in
// the retry policy; a returned error means this attempt failed.
func New(ctx context.Context, mode models.Mode, opts Options, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch opts.Provider {
	case ProviderOllama, "":
		model, err := ModelFor(mode, opts.Epochs)
		if err != nil {
			return nil, err
		}
		b := NewOllamaBackend(opts.OllamaURL, model, opts.OllamaOptions, opts.Timeout)
		if err := b.Ping(ctx); err != nil {
			return nil, utils.NewAppError("backend.New", b.Name(), fmt.Errorf("%w: %v", utils.ErrClientInit, err))
		}
		logger.Info("inference back-end ready", slog.String("backend", b.Name()), slog.Int("epochs", opts.Epochs))
		return b, nil
	case ProviderOpenAI:
		if err := LoadEnv(opts.EnvFile); err != nil {
			return nil, err
		}
		key, err := APIKey()
		if err != nil {
			return nil, err
		}
		b, err := NewOpenAIBackend(opts.OpenAIURL, opts.OpenAIModel, key, opts.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("inference back-end ready", slog.String("backend", b.Name()))
		return b, nil
	case ProviderRules:
		b, err := NewRuleBackend(opts.RulesPath, logger)
		if err != nil {
			return nil, utils.NewAppError("backend.New", "rules", fmt.Errorf("%w: %v", utils.ErrClientInit, err))
		}
		logger.Info("inference back-end ready", slog.String("backend", b.Name()))
		return b, nil
	default:
		return nil, utils.NewAppError("backend.New", fmt.Sprintf("unknown provider %q", opts.Provider), utils.ErrInvalidArgument)
	}
}
