package main

import (
	"context"
	"errors"
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

	"github.com/cuongbtq/notify-pipeline/internal/api/handler"
	"github.com/cuongbtq/notify-pipeline/internal/api/router"
	"github.com/cuongbtq/notify-pipeline/internal/config"
	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/internal/email"
	"github.com/cuongbtq/notify-pipeline/internal/notification"
	"github.com/cuongbtq/notify-pipeline/internal/notifier"
	"github.com/cuongbtq/notify-pipeline/internal/realtime"
	"github.com/cuongbtq/notify-pipeline/internal/storage"
	"github.com/cuongbtq/notify-pipeline/shared/logger"
	"github.com/cuongbtq/notify-pipeline/shared/postgresql"
	"github.com/cuongbtq/notify-pipeline/shared/rabbitmq"
	"github.com/cuongbtq/notify-pipeline/shared/redis"
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
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Bool("use_rabbitmq", cfg.RabbitMQ.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := &handler.Dependencies{
		Logger:      appLogger.Logger,
		ServiceName: cfg.App.Name,
	}

	// Job handlers run direct-mode jobs and broker-mode fallbacks. They need the
	// database for chat messages, so without one the API can only publish.
	var handlers domain.Handlers
	if cfg.Database.URL != "" {
		dbClient, err := initPostgreSQL(ctx, &cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()

		broadcaster, closeBroadcaster, err := initBroadcaster(&cfg.Redis, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize broadcaster: %w", err)
		}
		defer closeBroadcaster()

		store := storage.NewMessageStore(dbClient.GetDB(), appLogger.Logger)
		handlers, err = initHandlers(&cfg.Email, store, broadcaster, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize job handlers: %w", err)
		}
		deps.Messages = store
	} else {
		appLogger.Warn("Database not configured, failed publishes will not fall back to direct execution")
	}

	var publisher notifier.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitClient := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		defer rabbitClient.Close()

		if _, _, err := rabbitClient.Connect(); err != nil {
			appLogger.Warn("RabbitMQ not reachable yet, publishes will retry the connection",
				slog.Any("error", err),
			)
		} else {
			appLogger.Info("RabbitMQ connection established")
		}

		publisher = rabbitClient
		deps.Broker = rabbitClient
	}

	spawner := notifier.NewSpawner(appLogger.Logger)
	deps.Notifier, err = notifier.New(&notifier.Config{
		Logger:      appLogger.Logger,
		UseRabbitMQ: cfg.RabbitMQ.Enabled,
		Publisher:   publisher,
		Handlers:    handlers,
		Spawner:     spawner,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	// Initialize router
	r := initRouter(cfg.App.Environment, deps)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down server...")
	case err := <-serverErr:
		appLogger.Error("Server failed to start",
			slog.Any("error", err),
		)
		return err
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	// let direct-mode jobs finish before their dependencies are closed
	if err := spawner.Wait(shutdownCtx); err != nil {
		appLogger.Warn("Background notification jobs abandoned",
			slog.Any("error", err),
		)
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableSource,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL connects to PostgreSQL and applies migrations when enabled
func initPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	client, err := postgresql.NewClient(&postgresql.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := client.Migrate(ctx); err != nil {
			client.Close()
			return nil, err
		}
	}

	return client, nil
}

// initBroadcaster publishes room events to Redis, or only logs them when no
// Redis address is configured
func initBroadcaster(cfg *config.RedisConfig, log *slog.Logger) (notification.Broadcaster, func(), error) {
	if cfg.Addr == "" {
		return realtime.NewLogBroadcaster(log), func() {}, nil
	}

	client, err := redis.NewClient(&redis.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	return realtime.NewRedisBroadcaster(client, log), func() { client.Close() }, nil
}

// initHandlers builds the email and chat side effects every job kind runs
func initHandlers(cfg *config.EmailConfig, store *storage.MessageStore, broadcaster notification.Broadcaster, log *slog.Logger) (domain.Handlers, error) {
	templates, err := email.NewTemplateService()
	if err != nil {
		return nil, err
	}

	emailCfg := &email.Config{
		Enabled:       cfg.Enabled,
		MailgunDomain: cfg.MailgunDomain,
		MailgunAPIKey: cfg.MailgunAPIKey,
		FromEmail:     cfg.FromAddress,
		FromName:      cfg.FromName,
		AppBaseURL:    cfg.AppBaseURL,
	}
	emailService := email.NewService(emailCfg, email.NewSender(emailCfg, log), templates, log)

	return notification.NewService(emailService, store, broadcaster, log), nil
}

// initRabbitMQ builds the publishing client. Producers declare the same
// topology as the worker so the first publish never hits a missing exchange.
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) *rabbitmq.Client {
	return rabbitmq.NewClient(&rabbitmq.Config{
		URL:            cfg.URL,
		ConnectionName: cfg.ConnectionName,
		Heartbeat:      cfg.Heartbeat,
		ReconnectDelay: cfg.ReconnectDelay,
		PrefetchCount:  cfg.PrefetchCount,
		Topology: rabbitmq.Topology{
			Exchange:   cfg.Exchange,
			MessageTTL: cfg.MessageTTL,
			Queues: []rabbitmq.QueueBinding{
				{Name: cfg.Queues.Email, Pattern: domain.PatternEmail},
				{Name: cfg.Queues.Chat, Pattern: domain.PatternChat},
				{Name: cfg.Queues.General, Pattern: domain.PatternGeneral},
			},
		},
	}, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
