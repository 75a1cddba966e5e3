package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"sitetrust/internal/api"
	"sitetrust/internal/api/handlers"
	"sitetrust/internal/config"
	"sitetrust/internal/domain/services"
	grpchealth "sitetrust/internal/grpc/health"
	"sitetrust/internal/infrastructure/cache"
	"sitetrust/internal/infrastructure/database"
	"sitetrust/internal/infrastructure/database/repository"
	"sitetrust/internal/metrics"
	"sitetrust/internal/streaming"
	"sitetrust/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting sitetrust")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize infrastructure
	db, redisCache, err := initInfrastructure(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize infrastructure")
	}
	defer func() {
		if db != nil {
			db.Close()
		}
		if redisCache != nil {
			_ = redisCache.Close()
		}
	}()

	healthChecks := map[string]handlers.Pinger{}
	grpcChecks := map[string]grpchealth.Pinger{}

	// Result store and corpus
	var (
		store  services.ResultStore
		corpus services.CorpusReader
	)
	if db != nil {
		repos := repository.NewRepositories(db, cfg.Engine.CorpusQueryLimit, cfg.Engine.RecencyWindow)
		store = repos
		corpus = repos.Corpus
		healthChecks["postgres"] = db
		grpcChecks["postgres"] = db
		log.Info().Msg("repositories initialized with database")
	} else {
		mem := services.NewMemoryStore(cfg.Engine.CorpusQueryLimit)
		store = mem
		corpus = mem
		log.Warn().Msg("running without database, results are kept in memory")
	}

	var resultCache services.ResultCache
	if redisCache != nil {
		resultCache = redisCache
		corpus = cache.NewCorpusCache(corpus, redisCache, cfg.Engine.CorpusCacheTTL, log)
		healthChecks["redis"] = redisCache
		grpcChecks["redis"] = redisCache
	}

	// Initialize streaming infrastructure
	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without event publishing")
			natsPublisher = nil
		} else {
			healthChecks["nats"] = natsPublisher
			grpcChecks["nats"] = natsPublisher
			log.Info().Str("url", cfg.NATS.URL).Msg("connected to NATS")
		}
	}

	// Closing the bus also closes the NATS connection
	eventBus := streaming.NewEventBus(natsPublisher, log)
	defer eventBus.Close()

	wsHub := streaming.NewWebSocketHub(log)
	hubEvents, unsubscribe := eventBus.Subscribe()
	defer unsubscribe()
	go wsHub.Run(ctx, hubEvents)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	if db != nil {
		metrics.RegisterPoolStats(registry, db.Stats)
	}

	// Engine and service
	brands := services.NewBrandCatalog(services.BrandsFromConfig(cfg.Brands))
	engine := services.NewEngine(cfg.Engine, brands, log)
	log.Info().Int("brands", len(brands.Signatures())).Msg("verification engine initialized")

	service := services.NewVerificationService(services.VerificationDeps{
		Engine:   engine,
		Store:    store,
		Corpus:   corpus,
		Cache:    resultCache,
		Events:   streaming.NewEventBusPublisher(eventBus),
		Metrics:  m,
		CacheTTL: cfg.Engine.ResultCacheTTL,
	}, log)

	// Initialize handlers
	h := handlers.NewHandlers(handlers.Dependencies{
		Service:      service,
		Version:      cfg.App.Version,
		HealthChecks: healthChecks,
		Logger:       log,
	})

	// Create router
	router := api.NewRouter(*cfg, h, redisCache, wsHub, registry, log)

	// Start HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Start gRPC server
	grpcListener, err := net.Listen("tcp", cfg.Server.GRPCAddr())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gRPC listener")
	}

	grpcServer := grpc.NewServer()
	healthMonitor := grpchealth.NewMonitor(grpcChecks, 10*time.Second, log)
	healthMonitor.Register(grpcServer)
	go healthMonitor.Run(ctx)

	go func() {
		log.Info().
			Str("addr", grpcListener.Addr().String()).
			Msg("starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	// Cancel context to stop background services
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}

// initInfrastructure connects to PostgreSQL and Redis when enabled. Either may
// be nil on return; the service degrades to in-memory storage and no caching.
func initInfrastructure(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.PostgresDB, *cache.RedisCache, error) {
	var db *database.PostgresDB
	if cfg.Database.Enabled {
		var err error
		db, err = database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		var err error
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
			redisCache = nil
		}
	}

	return db, redisCache, nil
}
