// Package notifier is the enqueue API used by producers. It publishes jobs to
// RabbitMQ or, when the broker is disabled, runs the job handlers in-process.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/internal/metrics"
	"github.com/cuongbtq/notify-pipeline/shared/logger"
	"github.com/cuongbtq/notify-pipeline/shared/rabbitmq"
	"github.com/google/uuid"
)

// Mode selects how jobs are executed. It is fixed for the process lifetime.
type Mode string

const (
	ModeRabbitMQ Mode = "rabbitmq"
	ModeDirect   Mode = "direct"
)

// Status reports what happened to an enqueued job
type Status string

const (
	// StatusQueued means the broker accepted the job
	StatusQueued Status = "queued"
	// StatusScheduled means the job runs in this process
	StatusScheduled Status = "scheduled"
)

// Notifier enqueues one job per call. Both modes are fire-and-forget: a nil
// error only means the job was handed off.
type Notifier interface {
	Mode() Mode
	PublishOTPEmailJob(ctx context.Context, data domain.OTPEmailData) (Status, error)
	PublishEmailJob(ctx context.Context, data domain.TaskAssignmentData) (Status, error)
	PublishChatJob(ctx context.Context, data domain.TaskNotificationData) (Status, error)
	PublishTaskStatusJob(ctx context.Context, data domain.TaskStatusData) (Status, error)
	PublishTaskDeleteJob(ctx context.Context, data domain.TaskDeleteData) (Status, error)
}

// Publisher is the part of the RabbitMQ client the broker mode needs
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any, opts rabbitmq.PublishOptions) (bool, error)
}

var _ Publisher = (*rabbitmq.Client)(nil)

// Config wires a Notifier
type Config struct {
	Logger *slog.Logger
	// UseRabbitMQ selects broker mode
	UseRabbitMQ bool
	// Publisher is required in broker mode and never touched in direct mode
	Publisher Publisher
	// Handlers run jobs in direct mode and when a broker publish fails.
	// A nil Handlers disables the fallback.
	Handlers domain.Handlers
	Spawner  *Spawner
}

// New returns the notifier for the configured mode
func New(cfg *Config) (Notifier, error) {
	log := cfg.Logger.With(logger.Scope("notifier"))

	spawner := cfg.Spawner
	if spawner == nil {
		spawner = NewSpawner(log)
	}

	var direct *directEnqueuer
	if cfg.Handlers != nil {
		direct = &directEnqueuer{handlers: cfg.Handlers, spawner: spawner, log: log}
	}

	if !cfg.UseRabbitMQ {
		if direct == nil {
			return nil, errors.New("direct mode requires job handlers")
		}
		log.Info("Notifier running in direct mode")
		return &notifier{mode: ModeDirect, enqueue: direct.enqueue}, nil
	}

	if cfg.Publisher == nil {
		return nil, errors.New("rabbitmq mode requires a publisher")
	}

	broker := &brokerEnqueuer{publisher: cfg.Publisher, log: log}
	log.Info("Notifier running in RabbitMQ mode",
		slog.Bool("direct_fallback", direct != nil),
	)

	if direct == nil {
		return &notifier{mode: ModeRabbitMQ, enqueue: broker.enqueue}, nil
	}

	fallback := &fallbackEnqueuer{primary: broker, secondary: direct, log: log}
	return &notifier{mode: ModeRabbitMQ, enqueue: fallback.enqueue}, nil
}

type enqueueFunc func(ctx context.Context, payload domain.Payload) (Status, error)

type notifier struct {
	mode    Mode
	enqueue enqueueFunc
}

func (n *notifier) Mode() Mode { return n.mode }

func (n *notifier) PublishOTPEmailJob(ctx context.Context, data domain.OTPEmailData) (Status, error) {
	return n.enqueue(ctx, data)
}

func (n *notifier) PublishEmailJob(ctx context.Context, data domain.TaskAssignmentData) (Status, error) {
	return n.enqueue(ctx, data)
}

func (n *notifier) PublishChatJob(ctx context.Context, data domain.TaskNotificationData) (Status, error) {
	return n.enqueue(ctx, data)
}

func (n *notifier) PublishTaskStatusJob(ctx context.Context, data domain.TaskStatusData) (Status, error) {
	return n.enqueue(ctx, data)
}

func (n *notifier) PublishTaskDeleteJob(ctx context.Context, data domain.TaskDeleteData) (Status, error) {
	return n.enqueue(ctx, data)
}

// brokerEnqueuer publishes the job with its kind's routing key
type brokerEnqueuer struct {
	publisher Publisher
	log       *slog.Logger
}

func (b *brokerEnqueuer) enqueue(ctx context.Context, payload domain.Payload) (Status, error) {
	kind := payload.Kind()
	routingKey, ok := kind.RoutingKey()
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownJobType, kind)
	}

	job, err := domain.NewJob(payload)
	if err != nil {
		return "", err
	}

	accepted, err := b.publisher.Publish(ctx, routingKey, job, rabbitmq.PublishOptions{
		MessageID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish %s job: %w", kind, err)
	}

	b.log.Debug("Job published",
		slog.String("job_type", string(kind)),
		slog.String("routing_key", routingKey),
		slog.Bool("accepted", accepted),
	)
	return StatusQueued, nil
}

// directEnqueuer runs the handler in the background without the broker.
// There is no retry: a failure is logged and dropped.
type directEnqueuer struct {
	handlers domain.Handlers
	spawner  *Spawner
	log      *slog.Logger
}

func (d *directEnqueuer) enqueue(ctx context.Context, payload domain.Payload) (Status, error) {
	kind := payload.Kind()
	// the job outlives the request that enqueued it
	jobCtx := context.WithoutCancel(ctx)

	d.spawner.Go(string(kind), func() error {
		err := domain.Dispatch(jobCtx, d.handlers, payload)
		outcome := metrics.OutcomeSucceeded
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		metrics.DirectJobs.WithLabelValues(string(kind), outcome).Inc()
		return err
	})

	d.log.Debug("Job scheduled in-process", slog.String("job_type", string(kind)))
	return StatusScheduled, nil
}

// fallbackEnqueuer hands a job to the direct path when the broker publish fails
type fallbackEnqueuer struct {
	primary   *brokerEnqueuer
	secondary *directEnqueuer
	log       *slog.Logger
}

func (f *fallbackEnqueuer) enqueue(ctx context.Context, payload domain.Payload) (Status, error) {
	status, err := f.primary.enqueue(ctx, payload)
	if err == nil {
		return status, nil
	}

	kind := string(payload.Kind())
	f.log.Warn("Failed to enqueue job, running it directly",
		slog.String("job_type", kind),
		slog.Any("error", err),
	)
	metrics.EnqueueFallbacks.WithLabelValues(kind).Inc()

	return f.secondary.enqueue(ctx, payload)
}
