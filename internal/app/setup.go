package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/internal/circuitbreaker"
	"github.com/mselser95/sports-arb/internal/markets"
	"github.com/mselser95/sports-arb/internal/notify"
	"github.com/mselser95/sports-arb/internal/odds"
	"github.com/mselser95/sports-arb/internal/scanner"
	"github.com/mselser95/sports-arb/internal/storage"
	"github.com/mselser95/sports-arb/pkg/cache"
	"github.com/mselser95/sports-arb/pkg/config"
	"github.com/mselser95/sports-arb/pkg/healthprobe"
	"github.com/mselser95/sports-arb/pkg/httpserver"
	"github.com/mselser95/sports-arb/pkg/websocket"
	"go.uber.org/zap"
)

// readinessFactor is how many scan intervals may pass without a successful scan
// before /ready reports the service as stale.
const readinessFactor = 3

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Initialize components
	healthChecker := setupHealthChecker()

	descriptors, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	engine, err := setupEngine(cfg, logger)
	if err != nil {
		cancel()
		descriptors.Close()
		return nil, fmt.Errorf("setup engine: %w", err)
	}

	fetcher, err := setupFetcher(cfg, logger)
	if err != nil {
		cancel()
		descriptors.Close()
		return nil, fmt.Errorf("setup fetcher: %w", err)
	}

	writer, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		cancel()
		descriptors.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	publisher, err := setupPublisher(ctx, cfg, logger)
	if err != nil {
		cancel()
		descriptors.Close()
		if writer != nil {
			_ = writer.Close(context.Background())
		}
		return nil, fmt.Errorf("setup publisher: %w", err)
	}

	hub := setupHub(cfg, logger)

	sports := cfg.Sports
	if len(opts.Sports) > 0 {
		sports = opts.Sports
	}

	scan := scanner.New(&scanner.Config{
		Fetcher:     fetcher,
		Resolver:    setupResolver(descriptors, logger),
		Engine:      engine,
		Recorder:    recorderFor(writer),
		Publisher:   publisher,
		Broadcaster: hub,
		Sports:      sports,
		Interval:    cfg.ScanInterval,
		LiveTTL:     cfg.CacheLiveTTL,
		UpcomingTTL: cfg.CacheUpcomingTTL,
		Logger:      logger,
	})

	healthChecker.SetFreshnessCheck(scan.LastUpdate, readinessFactor*cfg.ScanInterval)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, scan, hub)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		descriptors:   descriptors,
		scanner:       scan,
		hub:           hub,
		writer:        writer,
		publisher:     publisher,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	scan *scanner.Scanner,
	hub *websocket.Hub,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:           cfg.HTTPPort,
		Logger:         logger,
		HealthChecker:  healthChecker,
		Source:         scan,
		WebSocket:      hub,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
}

// setupCache holds parsed odd-ID descriptors, which repeat across every scan.
func setupCache(logger *zap.Logger) (cache.Cache, error) {
	rc, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		Name:       "descriptors",
		MaxItems:   20000,
		DefaultTTL: 6 * time.Hour,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// setupOddsClient builds the provider client and its rate limiter.
func setupOddsClient(cfg *config.Config, logger *zap.Logger) *odds.Client {
	limiter := odds.NewRateLimiter(cfg.OddsRateLimitPerMinute, time.Minute, logger)

	return odds.NewClient(&odds.ClientConfig{
		BaseURL:     cfg.OddsAPIURL,
		APIKey:      cfg.OddsAPIKey,
		Timeout:     cfg.OddsRequestTimeout,
		RateLimiter: limiter,
		Backoff:     odds.DefaultBackoff(cfg.OddsRateLimitBackoff),
		MaxRetries:  cfg.OddsMaxRetries,
		PageSize:    cfg.OddsEventsPerRequest,
		MaxPages:    cfg.OddsMaxPages,
		Logger:      logger,
	})
}

// setupFetcher wraps the provider client in a per-sport breaker unless disabled.
func setupFetcher(cfg *config.Config, logger *zap.Logger) (odds.Fetcher, error) {
	client := setupOddsClient(cfg, logger)
	if cfg.OddsBreakerThreshold == 0 {
		return client, nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		Fetcher:          client,
		FailureThreshold: cfg.OddsBreakerThreshold,
		Cooldown:         cfg.OddsBreakerCooldown,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create fetch breaker: %w", err)
	}

	logger.Info("fetch-breaker-enabled",
		zap.Int("failure-threshold", cfg.OddsBreakerThreshold),
		zap.Duration("cooldown", cfg.OddsBreakerCooldown))

	return breaker, nil
}

func setupResolver(descriptors cache.Cache, logger *zap.Logger) *markets.Resolver {
	return markets.NewResolver(&markets.ResolverConfig{
		Cache:  descriptors,
		Logger: logger,
	})
}

func setupEngine(cfg *config.Config, logger *zap.Logger) (*arbitrage.Engine, error) {
	heuristics, err := arbitrage.LoadHeuristics(cfg.ArbHeuristicsFile)
	if err != nil {
		return nil, fmt.Errorf("load heuristics: %w", err)
	}

	if cfg.ArbHeuristicsFile != "" {
		logger.Info("heuristics-loaded", zap.String("file", cfg.ArbHeuristicsFile))
	}

	return arbitrage.NewEngine(&arbitrage.EngineConfig{
		StaleAfter:   cfg.ArbStaleAfter,
		MinProfitPct: cfg.ArbMinProfitPct,
		MaxProfitPct: cfg.ArbMaxProfitPct,
		Heuristics:   heuristics,
		Logger:       logger,
	}), nil
}

// setupStorage returns nil when persistence is disabled.
func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.AsyncWriter, error) {
	var backend storage.Storage

	switch cfg.StorageMode {
	case "postgres":
		pgStorage, err := storage.NewPostgresStorage(ctx, &storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		backend = pgStorage
	case "console":
		backend = storage.NewConsoleStorage(logger)
	default:
		logger.Info("storage-disabled")
		return nil, nil
	}

	return storage.NewAsyncWriter(&storage.AsyncWriterConfig{
		Storage:    backend,
		BufferSize: cfg.StorageBufferSize,
		Logger:     logger,
	}), nil
}

// recorderFor avoids handing the scanner a typed nil.
func recorderFor(writer *storage.AsyncWriter) scanner.Recorder {
	if writer == nil {
		return nil
	}
	return writer
}

func setupPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notify.Publisher, error) {
	if cfg.NotifyMode != "redis" {
		return notify.NopPublisher{}, nil
	}

	publisher, err := notify.NewStreamPublisher(ctx, &notify.StreamPublisherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.NotifyStreamPrefix,
		MaxLen:   cfg.NotifyStreamMaxLen,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream publisher: %w", err)
	}

	return publisher, nil
}

func setupHub(cfg *config.Config, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(websocket.HubConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})
}
