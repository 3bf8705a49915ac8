package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-bfeval/internal/backend"
	"github.com/miradorstack/mirador-bfeval/internal/dataset"
	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/retry"
)

// Config captures every setting of an evaluation run.
type Config struct {
	Mode    string        `yaml:"mode"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Retry   retry.Policy  `yaml:"retry"`
	Backend BackendConfig `yaml:"backend"`
	Dataset DatasetConfig `yaml:"dataset"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Cache   CacheConfig   `yaml:"cache"`
	Sink    SinkConfig    `yaml:"sink"`
	Report  ReportConfig  `yaml:"report"`
}

// ServerConfig controls the gRPC health listener and the HTTP status/metrics listener.
// An empty address disables the listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// BackendConfig selects and configures the inference back-end.
type BackendConfig struct {
	Provider string        `yaml:"provider"`
	Epochs   int           `yaml:"epochs"`
	Timeout  time.Duration `yaml:"timeout"`
	Ollama   OllamaConfig  `yaml:"ollama"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Rules    RulesConfig   `yaml:"rules"`
}

// OllamaConfig points at an Ollama server.
type OllamaConfig struct {
	BaseURL string                `yaml:"baseURL"`
	Options backend.OllamaOptions `yaml:"options"`
}

// OpenAIConfig configures the hosted chat-completions back-end.
type OpenAIConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
	EnvFile string `yaml:"envFile"`
}

// RulesConfig controls the threshold pack of the offline rule back-end.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// DatasetConfig describes where flow records come from.
type DatasetConfig struct {
	Source     string          `yaml:"source"`
	Directory  string          `yaml:"directory"`
	SampleSize int             `yaml:"sampleSize"`
	Postgres   PostgresConfig  `yaml:"postgres"`
	Synthetic  SyntheticConfig `yaml:"synthetic"`
}

// PostgresConfig reads flows from a table.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
	Limit int    `yaml:"limit"`
}

// SyntheticConfig fabricates flows from a seed.
type SyntheticConfig struct {
	Seed  uint64 `yaml:"seed"`
	Count int    `yaml:"count"`
}

// CorpusConfig locates the log corpus.
type CorpusConfig struct {
	Root string `yaml:"root"`
}

// CacheConfig controls caching of back-end answers.
type CacheConfig struct {
	Kind         string        `yaml:"kind"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	TTL          time.Duration `yaml:"ttl"`
	MemorySize   int           `yaml:"memorySize"`
}

// SinkConfig selects where per-unit events go.
type SinkConfig struct {
	Kind     string   `yaml:"kind"`
	Path     string   `yaml:"path"`
	Compress bool     `yaml:"compress"`
	NATSURL  string   `yaml:"natsURL"`
	Subject  string   `yaml:"subject"`
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
}

// ReportConfig controls the JSON run report.
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BFEVAL_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if _, err := models.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("invalid mode: %w", err)
	}
	if _, err := backend.ParseProvider(c.Backend.Provider); err != nil {
		return err
	}
	if c.Backend.Epochs < 0 || c.Backend.Epochs > backend.MaxEpochs {
		return fmt.Errorf("backend epochs must be within 0..%d, got %d", backend.MaxEpochs, c.Backend.Epochs)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry maxRetries must not be negative")
	}
	switch c.Dataset.Source {
	case "csv", "postgres", "synthetic":
	default:
		return fmt.Errorf("unknown dataset source %q", c.Dataset.Source)
	}
	switch c.Cache.Kind {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache kind %q", c.Cache.Kind)
	}
	switch c.Sink.Kind {
	case "none", "file", "nats", "kafka":
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Mode:    string(models.ModeLogs),
		Logging: LoggingConfig{Level: "info", JSON: false},
		Server: ServerConfig{
			Address:         "",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Retry: retry.DefaultPolicy(),
		Backend: BackendConfig{
			Provider: string(backend.ProviderOllama),
			Timeout:  5 * time.Minute,
			Ollama: OllamaConfig{
				BaseURL: backend.DefaultOllamaURL,
				Options: backend.DefaultOllamaOptions(),
			},
			OpenAI: OpenAIConfig{
				BaseURL: backend.DefaultOpenAIURL,
				Model:   backend.OpenAIModel,
			},
			Rules: RulesConfig{Path: "configs/rules/default.yaml"},
		},
		Dataset: DatasetConfig{
			Source:     "csv",
			Directory:  "data/ids2017",
			SampleSize: dataset.DefaultSampleSize,
			Postgres:   PostgresConfig{Table: "flows"},
			Synthetic:  SyntheticConfig{Seed: 2017, Count: dataset.DefaultSampleSize},
		},
		Corpus: CorpusConfig{Root: "data/logs"},
		Cache: CacheConfig{
			Kind:         "none",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			TTL:          24 * time.Hour,
			MemorySize:   4096,
		},
		Sink: SinkConfig{
			Kind:    "none",
			Subject: "bfeval.units",
			Topic:   "bfeval-units",
		},
		Report: ReportConfig{Dir: "reports"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BFEVAL_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("BFEVAL_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("BFEVAL_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("BFEVAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BFEVAL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("BFEVAL_RETRY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetries = n
		}
	}
	if v := os.Getenv("BFEVAL_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Retry.Delay = d
		}
	}
	if v := os.Getenv("BFEVAL_BACKEND_PROVIDER"); v != "" {
		cfg.Backend.Provider = v
	}
	if v := os.Getenv("BFEVAL_BACKEND_EPOCHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.Epochs = n
		}
	}
	if v := os.Getenv("BFEVAL_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("BFEVAL_OLLAMA_URL"); v != "" {
		cfg.Backend.Ollama.BaseURL = v
	}
	if v := os.Getenv("BFEVAL_OPENAI_URL"); v != "" {
		cfg.Backend.OpenAI.BaseURL = v
	}
	if v := os.Getenv("BFEVAL_ENV_FILE"); v != "" {
		cfg.Backend.OpenAI.EnvFile = v
	}
	if v := os.Getenv("BFEVAL_RULES_PATH"); v != "" {
		cfg.Backend.Rules.Path = v
	}
	if v := os.Getenv("BFEVAL_DATASET_SOURCE"); v != "" {
		cfg.Dataset.Source = v
	}
	if v := os.Getenv("BFEVAL_DATASET_DIR"); v != "" {
		cfg.Dataset.Directory = v
	}
	if v := os.Getenv("BFEVAL_DATASET_SAMPLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dataset.SampleSize = n
		}
	}
	if v := os.Getenv("BFEVAL_POSTGRES_DSN"); v != "" {
		cfg.Dataset.Postgres.DSN = v
	}
	if v := os.Getenv("BFEVAL_CORPUS_ROOT"); v != "" {
		cfg.Corpus.Root = v
	}
	if v := os.Getenv("BFEVAL_CACHE_KIND"); v != "" {
		cfg.Cache.Kind = v
	}
	if v := os.Getenv("BFEVAL_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("BFEVAL_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("BFEVAL_CACHE_TLS"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("BFEVAL_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("BFEVAL_SINK_KIND"); v != "" {
		cfg.Sink.Kind = v
	}
	if v := os.Getenv("BFEVAL_SINK_PATH"); v != "" {
		cfg.Sink.Path = v
	}
	if v := os.Getenv("BFEVAL_NATS_URL"); v != "" {
		cfg.Sink.NATSURL = v
	}
	if v := os.Getenv("BFEVAL_KAFKA_BROKERS"); v != "" {
		cfg.Sink.Brokers = splitList(v)
	}
	if v := os.Getenv("BFEVAL_REPORT_DIR"); v != "" {
		cfg.Report.Dir = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// BackendOptions maps the backend section onto backend.Options.
func (c *Config) BackendOptions() backend.Options {
	provider, _ := backend.ParseProvider(c.Backend.Provider)
	return backend.Options{
		Provider:      provider,
		Epochs:        c.Backend.Epochs,
		Timeout:       c.Backend.Timeout,
		OllamaURL:     c.Backend.Ollama.BaseURL,
		OllamaOptions: c.Backend.Ollama.Options,
		OpenAIURL:     c.Backend.OpenAI.BaseURL,
		OpenAIModel:   c.Backend.OpenAI.Model,
		EnvFile:       c.Backend.OpenAI.EnvFile,
		RulesPath:     c.Backend.Rules.Path,
	}
}
