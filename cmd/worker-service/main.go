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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/notify-pipeline/internal/config"
	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/internal/email"
	"github.com/cuongbtq/notify-pipeline/internal/monitor"
	"github.com/cuongbtq/notify-pipeline/internal/notification"
	"github.com/cuongbtq/notify-pipeline/internal/realtime"
	"github.com/cuongbtq/notify-pipeline/internal/storage"
	"github.com/cuongbtq/notify-pipeline/internal/worker"
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
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(ctx, &cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	// Initialize room broadcaster
	broadcaster, closeBroadcaster, err := initBroadcaster(&cfg.Redis, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize broadcaster: %w", err)
	}
	defer closeBroadcaster()

	// Initialize job handlers
	handlers, err := initHandlers(cfg, dbClient, broadcaster, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job handlers: %w", err)
	}

	// Initialize RabbitMQ client
	rabbitClient := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	defer rabbitClient.Close()

	if _, _, err := rabbitClient.Connect(); err != nil {
		// the client keeps retrying in the background and consumers resubscribe
		appLogger.Warn("RabbitMQ not reachable yet, worker will keep retrying",
			slog.Any("error", err),
		)
	} else {
		appLogger.Info("RabbitMQ connection established")
	}

	queues := cfg.WorkerQueues()

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:           appLogger.Logger,
		Broker:           rabbitClient,
		Handlers:         handlers,
		Queues:           queues,
		MaxRetries:       cfg.RabbitMQ.Retries(),
		JobTimeout:       cfg.Worker.Timeout(),
		ResubscribeDelay: cfg.Worker.ResubscribeDelay,
	})

	dlqMonitor := monitor.NewDLQMonitor(rabbitClient, queues, cfg.Worker.DLQCheckSchedule, appLogger.Logger)

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return workerInstance.Start(gctx)
	})

	g.Go(func() error {
		return dlqMonitor.Run(gctx)
	})

	g.Go(func() error {
		appLogger.Info("Starting metrics server", slog.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
		defer cancel()

		return metricsServer.Shutdown(shutdownCtx)
	})

	appLogger.Info("Worker service started successfully",
		slog.Any("queues", queues),
	)

	if err := g.Wait(); err != nil {
		appLogger.Error("Worker service stopped with error",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Worker service shutdown complete")
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
		log.Warn("Redis not configured, room broadcasts will only be logged")
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
func initHandlers(cfg *config.Config, dbClient *postgresql.Client, broadcaster notification.Broadcaster, log *slog.Logger) (domain.Handlers, error) {
	templates, err := email.NewTemplateService()
	if err != nil {
		return nil, err
	}

	emailCfg := &email.Config{
		Enabled:       cfg.Email.Enabled,
		MailgunDomain: cfg.Email.MailgunDomain,
		MailgunAPIKey: cfg.Email.MailgunAPIKey,
		FromEmail:     cfg.Email.FromAddress,
		FromName:      cfg.Email.FromName,
		AppBaseURL:    cfg.Email.AppBaseURL,
	}
	emailService := email.NewService(emailCfg, email.NewSender(emailCfg, log), templates, log)

	store := storage.NewMessageStore(dbClient.GetDB(), log)

	return notification.NewService(emailService, store, broadcaster, log), nil
}

// initRabbitMQ builds the client and the topology it declares on every connect
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

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
