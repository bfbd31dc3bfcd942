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

	"github.com/voltmatch/voltmatch-be/internal/auth"
	"github.com/voltmatch/voltmatch-be/internal/config"
	"github.com/voltmatch/voltmatch-be/internal/notifier"
	"github.com/voltmatch/voltmatch-be/internal/notifier/hub"
	"github.com/voltmatch/voltmatch-be/internal/notifier/push"
	notifierstorage "github.com/voltmatch/voltmatch-be/internal/notifier/storage"
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
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("NOTIFIER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/notifier-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateNotifierConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting notifier service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client (delivery audit log)
	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Initialize Redis client (device token lookup)
	redisClient, err := redisclient.NewClient(&redisclient.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	appLogger.Info("Redis connection established")

	// Live session hub and dispatcher
	sessionHub := hub.New(cfg.Notifier.SSEBufferSize, appLogger.Logger)

	dispatcher := notifier.NewDispatcher(&notifier.DispatcherConfig{
		Logger:         appLogger.Logger,
		Hub:            sessionHub,
		Tokens:         push.NewDeviceTokens(redisClient.GetRDB(), appLogger.Logger),
		Sender:         push.NewHTTPSender(cfg.Notifier.PushEndpoint, cfg.Notifier.PushAPIKey, 10*time.Second, appLogger.Logger),
		Log:            notifierstorage.NewStorage(dbClient),
		PushRetries:    cfg.Notifier.PushRetryAttempts,
		PushRetryDelay: cfg.Notifier.PushRetryInterval,
	})

	worker := notifier.NewWorker(&notifier.Config{
		Logger:        appLogger.Logger,
		RabbitClient:  rabbitClient,
		Dispatcher:    dispatcher,
		Concurrency:   cfg.Notifier.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		QueueName:     cfg.RabbitMQ.Queue.Name,
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	if err := worker.Start(workerCtx); err != nil {
		stopWorker()
		return fmt.Errorf("failed to start notifier worker: %w", err)
	}

	appLogger.Info("Notifier worker started",
		slog.Int("concurrency", cfg.Notifier.Concurrency),
		slog.String("queue", cfg.RabbitMQ.Queue.Name),
	)

	// SSE endpoint for live sessions
	srv := initServer(cfg, appLogger.Logger, sessionHub)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("SSE server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Notifier service is running",
		slog.String("address", srv.Addr),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down notifier service...")

	stopWorker()
	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Notifier.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("SSE server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Notifier service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
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
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initServer builds the HTTP server hosting the SSE stream endpoint.
func initServer(cfg *config.Config, logger *slog.Logger, sessionHub *hub.Hub) *http.Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "voltmatch-notifier-service",
		})
	})

	stream := r.Group("/api/v1")
	stream.Use(auth.Middleware(cfg.Auth.JWTSecret, logger))
	stream.GET("/notifications/stream", hub.SSEHandler(sessionHub, logger))

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Notifier.Port),
		Handler: r,
		// No WriteTimeout: SSE responses stay open for the whole session.
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}
