package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/shared/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds worker configuration
type Config struct {
	Logger           *slog.Logger
	Broker           Broker
	Handlers         domain.Handlers
	Queues           []string
	MaxRetries       int
	JobTimeout       time.Duration
	ResubscribeDelay time.Duration
	WorkerID         string
}

// Worker consumes the configured queues and dispatches each job to its handler
type Worker struct {
	logger           *slog.Logger
	broker           Broker
	handlers         domain.Handlers
	queues           []string
	maxRetries       int
	jobTimeout       time.Duration
	resubscribeDelay time.Duration
	workerID         string

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = domain.DefaultMaxRetries
	}

	resubscribeDelay := cfg.ResubscribeDelay
	if resubscribeDelay <= 0 {
		resubscribeDelay = 5 * time.Second
	}

	return &Worker{
		logger:           cfg.Logger.With(logger.Scope("worker"), slog.String("worker_id", workerID)),
		broker:           cfg.Broker,
		handlers:         cfg.Handlers,
		queues:           cfg.Queues,
		maxRetries:       maxRetries,
		jobTimeout:       cfg.JobTimeout,
		resubscribeDelay: resubscribeDelay,
		workerID:         workerID,
		stopChan:         make(chan struct{}),
	}
}

// Start consumes every configured queue and blocks until ctx is canceled or Stop is called
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.Any("queues", w.queues),
		slog.Int("max_retries", w.maxRetries),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.spawnConsumers(runCtx)

	select {
	case <-ctx.Done():
		w.logger.Info("Worker context canceled, stopping...")
	case <-w.stopChan:
	}

	cancel()
	w.wg.Wait()

	return nil
}

// Stop gracefully stops the worker and waits for in-flight jobs
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// handle is the Handler used for every queue: decode the job and dispatch by kind
func (w *Worker) handle(ctx context.Context, job *domain.Job, _ amqp.Delivery) error {
	return domain.DispatchJob(ctx, w.handlers, job)
}
