package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-bfeval/internal/api"
	"github.com/miradorstack/mirador-bfeval/internal/backend"
	"github.com/miradorstack/mirador-bfeval/internal/cache"
	"github.com/miradorstack/mirador-bfeval/internal/config"
	"github.com/miradorstack/mirador-bfeval/internal/corpus"
	"github.com/miradorstack/mirador-bfeval/internal/dataset"
	"github.com/miradorstack/mirador-bfeval/internal/evaluation"
	"github.com/miradorstack/mirador-bfeval/internal/metrics"
	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/runner"
	"github.com/miradorstack/mirador-bfeval/internal/sink"
	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

func main() {
	var (
		configPath string
		mode       string
		provider   string
		input      string
		epochs     int
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&mode, "mode", "", "Telemetry to evaluate: logs or flows")
	flag.StringVar(&provider, "provider", "", "Inference back-end: ollama, openai or rules")
	flag.StringVar(&input, "input", "", "Log corpus root (logs) or dataset directory (flows)")
	flag.IntVar(&epochs, "epochs", -1, "Fine-tuning epochs of the model, 0 for the base model")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	if err := applyFlags(cfg, mode, provider, input, epochs); err != nil {
		slog.Error("invalid flags", slog.Any("error", err))
		os.Exit(2)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting mirador-bfeval", slog.String("mode", cfg.Mode), slog.String("provider", cfg.Backend.Provider))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheProvider := newCache(ctx, cfg.Cache, logger)
	defer cacheProvider.Close()

	eventSink, err := newSink(cfg.Sink)
	if err != nil {
		logger.Error("failed to open event sink", slog.String("kind", cfg.Sink.Kind), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := eventSink.Close(); err != nil {
			logger.Warn("event sink close", slog.Any("error", err))
		}
	}()

	var grpcServer *api.Server
	status := api.NewStatus(nil)
	if cfg.Server.Address != "" {
		grpcServer, err = api.NewServer(cfg.Server)
		if err != nil {
			logger.Error("failed to create gRPC server", slog.Any("error", err))
			os.Exit(1)
		}
		status = api.NewStatus(grpcServer.Health())
		go func() {
			logger.Info("gRPC health server listening", slog.String("address", grpcServer.Address()))
			if serveErr := grpcServer.Start(); serveErr != nil {
				logger.Error("gRPC server exited", slog.Any("error", serveErr))
			}
		}()
	}

	var httpServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		httpServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      api.NewRouter(status),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("status server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server exited", slog.Any("error", err))
			}
		}()
	}

	backendOpts := cfg.BackendOptions()
	factory := func(ctx context.Context, mode models.Mode) (backend.Backend, error) {
		b, err := backend.New(ctx, mode, backendOpts, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Cache.Kind == "none" {
			return b, nil
		}
		return backend.NewCachingBackend(b, cacheProvider, cfg.Cache.TTL, logger), nil
	}

	r := runner.New(logger, cfg.Retry, factory,
		runner.WithSink(eventSink),
		runner.WithObserver(status),
		runner.WithReportDir(cfg.Report.Dir),
	)

	report, runErr := run(ctx, r, cfg, logger)
	if runErr == nil {
		fmt.Println(report.String())
	} else {
		logger.Error("evaluation failed", slog.Any("error", runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("status server shutdown", slog.Any("error", err))
		}
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("mirador-bfeval stopped")
	if runErr != nil {
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, mode, provider, input string, epochs int) error {
	if epochs < -1 {
		return fmt.Errorf("epochs must be within 0..%d, got %d", backend.MaxEpochs, epochs)
	}
	if mode != "" {
		cfg.Mode = mode
	}
	if provider != "" {
		cfg.Backend.Provider = provider
	}
	if epochs >= 0 {
		cfg.Backend.Epochs = epochs
	}
	if input != "" {
		if m, _ := models.ParseMode(cfg.Mode); m == models.ModeFlows {
			cfg.Dataset.Directory = input
		} else {
			cfg.Corpus.Root = input
		}
	}
	return cfg.Validate()
}

func run(ctx context.Context, r *runner.Runner, cfg *config.Config, logger *slog.Logger) (evaluation.Report, error) {
	mode, err := models.ParseMode(cfg.Mode)
	if err != nil {
		return evaluation.Report{}, err
	}
	if mode == models.ModeLogs {
		return r.RunLogs(ctx, corpus.NewProvider(cfg.Corpus.Root, logger))
	}

	var flows dataset.Provider
	switch cfg.Dataset.Source {
	case "postgres":
		flows = dataset.NewPostgresProvider(cfg.Dataset.Postgres.DSN, cfg.Dataset.Postgres.Table,
			cfg.Dataset.Postgres.Limit, cfg.Dataset.SampleSize, logger)
	case "synthetic":
		flows = dataset.NewSyntheticProvider(cfg.Dataset.Synthetic.Seed, cfg.Dataset.Synthetic.Count)
	default:
		flows = dataset.NewCSVProvider(cfg.Dataset.Directory, cfg.Dataset.SampleSize, logger)
	}
	return r.RunFlows(ctx, flows)
}

func newCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	switch cfg.Kind {
	case "memory":
		provider, err := cache.NewMemoryProvider(cfg.MemorySize)
		if err != nil {
			logger.Warn("memory cache unavailable", slog.Any("error", err))
			return cache.NoopProvider{}
		}
		return provider
	case "redis":
		provider, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
			return cache.NoopProvider{}
		}
		return provider
	default:
		return cache.NoopProvider{}
	}
}

func newSink(cfg config.SinkConfig) (sink.Sink, error) {
	switch cfg.Kind {
	case "file":
		return sink.NewFileSink(cfg.Path, cfg.Compress)
	case "nats":
		return sink.NewNATSSink(cfg.NATSURL, cfg.Subject)
	case "kafka":
		return sink.NewKafkaSink(cfg.Brokers, cfg.Topic)
	default:
		return sink.Noop{}, nil
	}
}
