package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flightq/internal/config"
	"github.com/kailas-cloud/flightq/internal/db"
	"github.com/kailas-cloud/flightq/internal/domain"
	dbBadger "github.com/kailas-cloud/flightq/internal/db/badger"
	dbRedis "github.com/kailas-cloud/flightq/internal/db/redis"
	logpkg "github.com/kailas-cloud/flightq/internal/logger"
	"github.com/kailas-cloud/flightq/internal/metrics"
	airlinerepo "github.com/kailas-cloud/flightq/internal/repository/airline"
	"github.com/kailas-cloud/flightq/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/flightq/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/flightq/internal/transport/openai"
	airlineuc "github.com/kailas-cloud/flightq/internal/usecase/airline"
	embeddinguc "github.com/kailas-cloud/flightq/internal/usecase/embedding"
	filteruc "github.com/kailas-cloud/flightq/internal/usecase/filter"
	generationuc "github.com/kailas-cloud/flightq/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/flightq/internal/usecase/health"
	modeluc "github.com/kailas-cloud/flightq/internal/usecase/model"
	predictuc "github.com/kailas-cloud/flightq/internal/usecase/predict"
	"github.com/kailas-cloud/flightq/internal/version"
)

const embeddingProvider = "openai-compatible"

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("failed to load .env: " + err.Error())
	}

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting flightq API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("base_model", cfg.Model.BaseModel),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open embedding cache store", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	embedder, err := buildEmbedder(cfg.Embedding, cfg.Database, store, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	startupCtx, cancelStartup := context.WithTimeout(ctx, time.Duration(cfg.Model.StartupTimeoutSec)*time.Second)
	defer cancelStartup()

	// Airline table: load and embed once, fail fast.
	records, err := airlinerepo.NewDataset(cfg.Airlines.Sheet, airlinerepo.Columns{
		NameEN: cfg.Airlines.NameENColumn,
		NameAR: cfg.Airlines.NameARColumn,
		Code:   cfg.Airlines.CodeColumn,
	}, logger).LoadFile(cfg.Airlines.DatasetPath)
	if err != nil {
		logger.Fatal("Failed to load airline dataset", zap.Error(err))
	}
	retriever := airlineuc.New(records, embedder, airlineuc.Options{
		TopK:      cfg.Airlines.TopK,
		Threshold: cfg.Airlines.LookupThreshold(),
	}, logger)
	if err := retriever.Build(startupCtx); err != nil {
		logger.Fatal("Failed to build airline index", zap.Error(err))
	}

	// Language model: base model must be served before we accept traffic.
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:    cfg.Model.Provider.APIKey,
		BaseURL:   cfg.Model.Provider.BaseURL,
		BaseModel: cfg.Model.BaseModel,
		Logger:    logger,
	})
	loader, err := modeluc.NewLoader(startupCtx, generator, modeluc.Config{
		Adapters:    cfg.Model.Adapters,
		Root:        cfg.ResolveAdapterRoot(),
		MaxCached:   cfg.Model.MaxCachedAdapters,
		LoadTimeout: time.Duration(cfg.Model.LoadTimeoutSec) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Model server not ready", zap.Error(err))
	}
	cancelStartup()

	// Use cases
	generationSvc := generationuc.New(generator, generationuc.Options{
		MaxNewTokens: cfg.Model.MaxNewTokens,
		Timeout:      time.Duration(cfg.Model.GenerationTimeoutSec) * time.Second,
	}, logger)
	converter := filteruc.NewConverter(retriever, logger)
	predictSvc := predictuc.New(loader, generationSvc, converter, retriever)

	components := []healthuc.Component{
		healthuc.Provider("model", generator),
		healthuc.Provider("embedding", embedder),
	}
	if store != nil {
		components = append(components, healthuc.Ping("cache", store))
	}
	healthSvc := healthuc.New(logger, components...)

	// Create chi server
	server := chiTransport.NewServer(predictSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.RecovererMiddleware(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.Routes(r, server)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Free adapter slots on the shared inference server.
	loader.Purge()

	logger.Info("Server stopped gracefully")
}

// openStore connects the embedding cache backend. Driver "none" returns a nil store.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverNone:
		logger.Info("Embedding cache disabled")
		return nil, nil
	case config.DriverRedis, config.DriverValkey:
		// rueidis speaks RESP to both.
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	case config.DriverBadger:
		store, err = dbBadger.Open(dbBadger.Config{
			Path:   cfg.Path,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	logger.Info("Connected to embedding cache store", zap.String("driver", cfg.Driver))
	return store, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	dbCfg config.DatabaseConfig,
	store db.Store,
	logger *zap.Logger,
) (*embeddinguc.InstrumentedEmbedder, error) {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   embeddingProvider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Options{
			Model:      cfg.Model,
			TTL:        time.Duration(dbCfg.CacheTTLHours) * time.Hour,
			CacheTotal: metrics.EmbeddingCacheTotal,
		}, logger)
	}

	// Instrumented (logging + concurrent chunking)
	instrumented, err := embeddinguc.NewInstrumentedEmbedder(
		embedder, embeddingProvider, cfg.Model,
		embeddinguc.Options{BatchSize: cfg.BatchSize, Workers: cfg.Workers}, logger,
	)
	if err != nil {
		return nil, fmt.Errorf("instrument embedder: %w", err)
	}
	return instrumented, nil
}
