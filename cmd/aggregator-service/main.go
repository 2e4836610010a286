package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-market-aggregator/internal/aggregator/adapter"
	"golang-market-aggregator/internal/aggregator/config"
	"golang-market-aggregator/internal/aggregator/delivery/consumer"
	delivery "golang-market-aggregator/internal/aggregator/delivery/http"
	_ "golang-market-aggregator/internal/aggregator/docs"
	"golang-market-aggregator/internal/aggregator/metrics"
	"golang-market-aggregator/internal/aggregator/repository"
	"golang-market-aggregator/internal/aggregator/service"
	"golang-market-aggregator/pkg/common"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/postgres"
	"golang-market-aggregator/pkg/redis"
	"golang-market-aggregator/pkg/sqlite"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aggregator-service",
	Short: "Market data aggregation service",
	Long:  `Aggregates quotes, news, sentiment and predictions into per-symbol snapshots and serves them over HTTP.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the aggregator HTTP service",
	Run:   runServe,
}

// @title Market Aggregator API
// @version 1.0
// @description Per-symbol market snapshots combining quotes, news, sentiment and predictions.
// @BasePath /api/v1
func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-aggregator.yaml", "Path to the configuration file")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing aggregator CLI: %s\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Aggregator Service",
		logger.Field("name", cfg.App.Name),
		logger.Field("version", cfg.App.Version),
		logger.Field("news_provider", cfg.News.Provider),
		logger.Field("refresh_dispatcher", cfg.Aggregator.RefreshDispatcher),
		logger.BoolField("start_live", cfg.Aggregator.StartLive))

	db, err := openDatabase(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
		}
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	sources, err := buildSources(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize adapters", logger.ErrorField(err))
	}

	orchestrator := service.NewOrchestrator(service.OrchestratorConfig{
		BatchTimeout:  cfg.Aggregator.BatchTimeout,
		SingleTimeout: cfg.Aggregator.SingleTimeout,
	}, sources, recorder, appLogger)

	hub := delivery.NewHub(recorder, appLogger)
	controller := service.NewModeController(service.ModeControllerConfig{
		DefaultSymbols:    cfg.Aggregator.DefaultSymbols,
		DefaultTimeframes: cfg.Aggregator.Timeframes(),
		RefreshInterval:   cfg.Aggregator.RefreshInterval,
		CycleTimeout:      cfg.Aggregator.RedisStreamRefreshTimeout,
		NewsLimit:         cfg.Aggregator.NewsLimit,
		MaxSymbols:        cfg.Aggregator.MaxSymbols,
	}, orchestrator, repository.NewSnapshotStore(db), hub, recorder, appLogger)

	var (
		dispatcher    service.RefreshDispatcher
		redisConsumer *consumer.RedisConsumer
	)
	switch cfg.Aggregator.RefreshDispatcher {
	case "redis":
		if err := redisClient.EnsureGroup(ctx, common.RedisStreamSnapshotRefresh, common.RedisStreamGroup); err != nil {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
		dispatcher = service.NewRedisDispatcher(redisClient.Client, cfg.Redis.StreamMaxLen, appLogger)
		worker := consumer.NewRefreshWorker(consumer.RefreshWorkerConfig{
			MaxIdleDuration: cfg.Aggregator.RedisStreamRefreshMaxIdleDuration,
			MaxRetry:        cfg.Aggregator.RedisStreamRefreshMaxRetry,
		}, redisClient.Client, controller, appLogger)
		redisConsumer = consumer.NewRedisConsumer(cfg, worker, appLogger)
		redisConsumer.Start(ctx)
	default:
		dispatcher = service.NewLocalDispatcher(controller, cfg.Aggregator.RedisStreamRefreshTimeout, appLogger)
	}

	if cfg.Aggregator.StartLive {
		if _, err := controller.SetLive(true); err != nil {
			appLogger.Fatal("Failed to enable live mode", logger.ErrorField(err))
		}
	}

	deps := delivery.ServerDeps{
		Snapshots:  controller,
		Dispatcher: dispatcher,
		Hub:        hub,
		Logger:     appLogger,
	}
	if cfg.Metrics.Enabled {
		deps.Gatherer = registry
		deps.MetricsPath = cfg.Metrics.Path
	}
	e := delivery.NewRouter(deps)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}
	if redisConsumer != nil {
		redisConsumer.Stop()
	}
	if err := controller.Close(shutdownCtx); err != nil {
		appLogger.Warn("Background refresh did not finish before shutdown", logger.ErrorField(err))
	}
	hub.Close()

	appLogger.Info("Server exiting")
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "sqlite" {
		db, err := sqlite.NewDB(cfg.Database.Path, cfg.Database.LogLevel)
		if err != nil {
			return nil, err
		}
		if err := repository.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
		return db, nil
	}

	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, err
	}
	return db.DB, nil
}

func buildSources(ctx context.Context, cfg *config.Config, log *logger.Logger) (service.Sources, error) {
	sources := service.Sources{
		Quotes:    adapter.NewYahooQuoteAdapter(cfg.YahooFinance, log),
		Sentiment: adapter.NewRESTSentimentAdapter(cfg.Sentiment, log),
	}

	switch cfg.News.Provider {
	case "alphavantage":
		sources.News = adapter.NewAlphaVantageNewsAdapter(cfg.AlphaVantage, log)
	default:
		sources.News = adapter.NewRSSNewsAdapter(cfg.RSS, log)
	}

	predictions, err := adapter.NewGeminiPredictionAdapter(ctx, cfg.Gemini, log)
	if err != nil {
		return service.Sources{}, err
	}
	sources.Predictions = predictions
	return sources, nil
}
