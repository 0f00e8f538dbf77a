package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/config"
	"github.com/anomalyhq/corpusd/internal/httpapi"
	"github.com/anomalyhq/corpusd/internal/logging"
	"github.com/anomalyhq/corpusd/internal/orchestrator"
	"github.com/anomalyhq/corpusd/internal/store"
	"github.com/anomalyhq/corpusd/internal/telemetry"
	"github.com/anomalyhq/corpusd/internal/tools"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return run(ctx)
}

// run starts the corpusd server and blocks until context cancellation.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize the structured logger
//  3. Wire the store: record engine, optional vector index, seed data
//  4. Build the tool registry over the configured scoring weights
//  5. Connect the LLM reasoner and optional NATS event publisher
//  6. Start the HTTP server
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting corpusd",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("vector_provider", cfg.Store.Vector.Provider),
		zap.String("reasoner_model", cfg.Reasoner.Model))

	tracing, err := telemetry.NewTracing(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn("trace shutdown failed", zap.Error(err))
		}
	}()

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	srv := httpapi.NewServer(cfg.Server, deps.stores, deps.orch, deps.router, logger)

	logger.Info("server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s/health", cfg.Server.Addr())),
		zap.String("api_prefix", "/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Start(ctx)
}

// dependencies holds everything the HTTP layer is built from.
type dependencies struct {
	stores   *store.Service
	orch     *orchestrator.Orchestrator
	router   *orchestrator.Router
	natsConn *nats.Conn
	vectors  store.VectorIndex
}

// Close releases infrastructure resources.
func (d *dependencies) Close() {
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	if c, ok := d.vectors.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	vectors, err := initVectorIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	stores := store.NewService(store.NewMemoryEngine(), vectors, logger)

	if cfg.Store.SeedFile != "" {
		sf, err := store.LoadSeedFile(cfg.Store.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("load seed file: %w", err)
		}
		if err := stores.Seed(ctx, sf); err != nil {
			return nil, fmt.Errorf("apply seed file: %w", err)
		}
		logger.Info("seed data loaded", zap.String("file", cfg.Store.SeedFile))
	}

	registry, err := tools.NewRegistry(cfg.Weights, logger)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	reasoner, err := initReasoner(cfg)
	if err != nil {
		return nil, fmt.Errorf("build reasoner: %w", err)
	}

	var nc *nats.Conn
	var events *orchestrator.Publisher
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		events = orchestrator.NewPublisher(nc, cfg.NATS.SubjectPrefix, logger)
		logger.Info("connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	orch, err := orchestrator.New(registry, reasoner, events, orchestrator.Options{
		MaxToolCalls: cfg.Reasoner.MaxToolCalls,
		ToolTimeout:  cfg.Reasoner.ToolTimeout.Duration(),
	}, logger)
	if err != nil {
		if nc != nil {
			nc.Close()
		}
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	return &dependencies{
		stores:   stores,
		orch:     orch,
		router:   orchestrator.NewRouter(orch, logger),
		natsConn: nc,
		vectors:  vectors,
	}, nil
}

// initVectorIndex builds the configured vector backend, or none. With no
// backend, semantic tools report the embedding layer as unavailable and
// everything else still works.
func initVectorIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.VectorIndex, error) {
	if cfg.Store.Vector.Provider == "none" {
		return nil, nil
	}

	embedder, err := store.NewOpenAIEmbedder(store.EmbedderConfig{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	switch cfg.Store.Vector.Provider {
	case "chromem":
		idx, err := store.NewChromemIndex(cfg.Store.Vector.ChromemPath, embedder)
		if err != nil {
			return nil, fmt.Errorf("create chromem index: %w", err)
		}
		logger.Info("vector index ready",
			zap.String("provider", "chromem"),
			zap.String("path", cfg.Store.Vector.ChromemPath))
		return idx, nil
	case "qdrant":
		idx, err := store.NewQdrantIndex(ctx, store.QdrantConfig{
			Host:       cfg.Store.Vector.Qdrant.Host,
			Port:       cfg.Store.Vector.Qdrant.Port,
			APIKey:     cfg.Store.Vector.Qdrant.APIKey.Value(),
			UseTLS:     cfg.Store.Vector.Qdrant.UseTLS,
			VectorSize: cfg.Store.Vector.Qdrant.VectorSize,
		}, embedder)
		if err != nil {
			return nil, fmt.Errorf("create qdrant index: %w", err)
		}
		logger.Info("vector index ready",
			zap.String("provider", "qdrant"),
			zap.String("host", cfg.Store.Vector.Qdrant.Host))
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown vector provider %q", cfg.Store.Vector.Provider)
	}
}

// initReasoner builds the chat model that drives orchestration. The
// client speaks the OpenAI API, so any compatible endpoint works.
func initReasoner(cfg *config.Config) (*orchestrator.LLMReasoner, error) {
	apiKey := cfg.Reasoner.APIKey.Value()
	if apiKey == "" {
		// langchaingo requires a token even for keyless local servers.
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Reasoner.Model),
		openai.WithToken(apiKey),
	}
	if cfg.Reasoner.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Reasoner.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return orchestrator.NewLLMReasoner(llm)
}
