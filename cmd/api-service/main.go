package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/voltmatch/voltmatch-be/internal/api/handler"
	"github.com/voltmatch/voltmatch-be/internal/api/router"
	"github.com/voltmatch/voltmatch-be/internal/api/service"
	"github.com/voltmatch/voltmatch-be/internal/api/storage"
	"github.com/voltmatch/voltmatch-be/internal/config"
	"github.com/voltmatch/voltmatch-be/internal/notifier/push"
	"github.com/voltmatch/voltmatch-be/shared/logger"
	"github.com/voltmatch/voltmatch-be/shared/postgresql"
	"github.com/voltmatch/voltmatch-be/shared/rabbitmq"
	"github.com/voltmatch/voltmatch-be/shared/redisclient"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("api-service starting",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()
	appLogger.Info("connected to PostgreSQL")

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()
	appLogger.Info("connected to RabbitMQ")

	// Redis backs the device token registry only.
	redisClient, err := redisclient.NewClient(&redisclient.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()
	appLogger.Info("connected to Redis")

	svc := service.New(&service.Config{
		Logger:        appLogger.Logger,
		DB:            dbClient,
		Storage:       storage.NewStorage(dbClient),
		Publisher:     rabbitClient,
		FundingWindow: cfg.Escrow.FundingWindow,
		ReviewWindow:  cfg.Escrow.ReviewWindow,
	})

	engine := initRouter(cfg, appLogger.Logger, svc, push.NewDeviceTokens(redisClient.GetRDB(), appLogger.Logger))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("HTTP server listening", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// The funding reaper cancels jobs whose escrow hold sat in
	// PENDING_FUNDING past the funding window.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runFundingReaper(rootCtx, svc, cfg.Escrow.ReaperInterval, appLogger.Logger)

	<-rootCtx.Done()
	appLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", slog.Any("error", err))
		return err
	}

	appLogger.Info("api-service stopped")
	return nil
}

// runFundingReaper periodically expires stale PENDING_FUNDING holds.
func runFundingReaper(ctx context.Context, svc *service.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("funding reaper stopped")
			return
		case <-ticker.C:
			cancelled, err := svc.ExpireStaleHolds(ctx)
			if err != nil {
				logger.Error("funding reaper sweep failed", slog.Any("error", err))
				continue
			}
			if cancelled > 0 {
				logger.Info("funding reaper cancelled stale jobs", slog.Int("count", cancelled))
			}
		}
	}
}

func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		BindingKeys:        cfg.BindingKeys,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// initRouter assembles the gin engine with every route and middleware wired.
func initRouter(cfg *config.Config, logger *slog.Logger, svc *service.Service, tokens *push.DeviceTokens) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger:              logger,
		Service:             svc,
		Tokens:              tokens,
		EscrowWebhookSecret: cfg.Escrow.WebhookSecret,
		AuthSecret:          cfg.Auth.JWTSecret,
	})
}
