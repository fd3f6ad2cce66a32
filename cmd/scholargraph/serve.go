package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/panjf2000/ants/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/config"
	"github.com/kailas-cloud/scholargraph/internal/db"
	"github.com/kailas-cloud/scholargraph/internal/domain"
	"github.com/kailas-cloud/scholargraph/internal/metrics"
	"github.com/kailas-cloud/scholargraph/internal/repository/embcache"
	papersrepo "github.com/kailas-cloud/scholargraph/internal/repository/papers"
	chiTransport "github.com/kailas-cloud/scholargraph/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/scholargraph/internal/transport/openai"
	"github.com/kailas-cloud/scholargraph/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/scholargraph/internal/usecase/health"
	paperuc "github.com/kailas-cloud/scholargraph/internal/usecase/paper"
	"github.com/kailas-cloud/scholargraph/internal/usecase/routing"
	searchuc "github.com/kailas-cloud/scholargraph/internal/usecase/search"
	suggestuc "github.com/kailas-cloud/scholargraph/internal/usecase/suggest"
	weightsuc "github.com/kailas-cloud/scholargraph/internal/usecase/weights"
	"github.com/kailas-cloud/scholargraph/internal/version"
)

const chatTemperature = 0.3

//nolint:funlen,gocyclo // composition root
func serveCommand(c *cli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	logger, cfg := rt.logger, rt.cfg
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting scholargraph API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", rt.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("weights_driver", cfg.Weights.Driver),
		zap.Bool("llm_enabled", cfg.LLM.Enabled()),
	)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterWeightMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterHTTPMetrics()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Connected to database")

	catalog, err := newCatalog(cfg.Collections)
	if err != nil {
		return err
	}

	persister, closePersister, err := openPersister(cfg.Weights, store, logger)
	if err != nil {
		return err
	}
	defer closePersister()

	weights := weightsuc.New(persister, logger.Named("weights"))
	weights.Load(ctx)

	embedder := buildEmbedder(cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Pass a nil interface (not a typed nil pointer) when the LLM is disabled.
	var (
		llm       assistant.LLM
		llmHealth healthuc.ProviderChecker
	)
	if cfg.LLM.Enabled() {
		chat := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: chatTemperature,
			Logger:      logger.Named("llm"),
		})
		llm, llmHealth = chat, chat
	}
	asst := assistant.New(llm, assistant.Config{
		Timeout:        cfg.LLM.Timeout(),
		ExpansionRPS:   cfg.LLM.ExpansionRPS,
		ExpansionBurst: cfg.LLM.ExpansionBurst,
	}, logger.Named("assistant"))

	router := routing.NewRouter(catalog, embedder, logger.Named("router"))
	if err := router.Init(ctx); err != nil {
		logger.Warn("Router initialization failed, retrying lazily on first query", zap.Error(err))
	}
	ranker := routing.NewHybridRanker(weights, catalog, cfg.Search.Alpha)

	// Blocking pool: concurrent searches queue for workers instead of dropping collections.
	pool, err := ants.NewPool(cfg.Search.Workers,
		ants.WithLogger(zap.NewStdLog(logger.Named("ants"))),
		ants.WithPanicHandler(func(p any) {
			logger.Error("Collection search panicked", zap.Any("panic", p), zap.Stack("stacktrace"))
		}),
	)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	papers := papersrepo.New(store)

	searchSvc := searchuc.New(searchuc.Deps{
		Expander: asst,
		Embedder: embedder,
		Router:   router,
		Selector: ranker,
		Papers:   papers,
		Rewarder: weights,
		Pool:     pool,
		Catalog:  catalog,
	}, searchuc.Config{
		Candidates:        cfg.Search.Candidates,
		Selected:          cfg.Search.Selected,
		DefaultLimit:      cfg.Search.DefaultLimit,
		MaxLimit:          cfg.Search.MaxLimit,
		Reward:            cfg.Weights.Reward,
		CollectionTimeout: cfg.Search.CollectionTimeout(),
	}, logger.Named("search"))

	suggestSvc := suggestuc.New(catalog, router, weights, logger.Named("suggest"))
	paperSvc := paperuc.New(catalog, papers, asst)
	healthSvc := healthuc.New(healthuc.Deps{
		DB:        store,
		Embedding: newEmbeddingHealthChecker(embedder),
		LLM:       llmHealth,
		Router:    router,
	}, logger.Named("health"))

	server := chiTransport.NewServer(chiTransport.Deps{
		Search:  searchSvc,
		Suggest: suggestSvc,
		Papers:  paperSvc,
		Chat:    asst,
		Weights: weights,
		Health:  healthSvc,
		Catalog: catalog,
	}, cfg.Weights.FeedbackReward, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	go decayLoop(ctx, weights, cfg.Weights, logger.Named("decay"))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.ProviderChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
func buildEmbedder(cfg config.EmbeddingConfig, store db.KVStore, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   "openai",
		Logger:     logger.Named("embedding"),
	})

	var embedder domain.Embedder = base
	if store != nil {
		ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
		embedder = embcache.New(base, store, cfg.Model, ttl, metrics.EmbeddingCacheTotal, logger.Named("embcache"))
	}

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}
