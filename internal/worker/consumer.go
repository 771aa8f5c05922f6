package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/shared/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrSubscriptionClosed is returned by Consume when the broker ends the delivery stream
var ErrSubscriptionClosed = errors.New("subscription closed")

// Broker is the part of the RabbitMQ client a consumer needs
type Broker interface {
	Subscribe(queue, consumerTag string, opts rabbitmq.SubscribeOptions) (<-chan amqp.Delivery, error)
	PublishRaw(ctx context.Context, routingKey string, body []byte, opts rabbitmq.PublishOptions) (bool, error)
}

var _ Broker = (*rabbitmq.Client)(nil)

// Handler performs one job. A returned error drives the retry policy.
type Handler func(ctx context.Context, job *domain.Job, msg amqp.Delivery) error

// ConsumeOptions tune a single consume call
type ConsumeOptions struct {
	MaxRetries  int
	ConsumerTag string
	JobTimeout  time.Duration
	Subscribe   rabbitmq.SubscribeOptions
}

// Consume subscribes to queue with manual acknowledgement and runs handler on each
// job, one at a time. It returns nil when ctx is canceled and ErrSubscriptionClosed
// when the broker closes the stream.
func (w *Worker) Consume(ctx context.Context, queue string, handler Handler, opts ConsumeOptions) error {
	if opts.ConsumerTag == "" {
		opts.ConsumerTag = fmt.Sprintf("%s-%s", w.workerID, queue)
	}

	deliveries, err := w.broker.Subscribe(queue, opts.ConsumerTag, opts.Subscribe)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", queue, err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("queue", queue),
		slog.String("consumer_tag", opts.ConsumerTag),
		slog.Int("max_retries", opts.MaxRetries),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Consumer stopped - context canceled",
				slog.String("queue", queue),
			)
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed",
					slog.String("queue", queue),
				)
				return ErrSubscriptionClosed
			}

			if delivery.Acknowledger == nil {
				continue
			}

			w.processDelivery(ctx, queue, delivery, handler, opts)
		}
	}
}

// consumeLoop keeps queue subscribed, resubscribing after the stream drops
func (w *Worker) consumeLoop(ctx context.Context, queue string) {
	opts := ConsumeOptions{
		MaxRetries: w.maxRetries,
		JobTimeout: w.jobTimeout,
	}

	for {
		err := w.Consume(ctx, queue, w.handle, opts)
		if ctx.Err() != nil {
			return
		}

		w.logger.Warn("Consumer interrupted, resubscribing",
			slog.String("queue", queue),
			slog.Duration("retry_in", w.resubscribeDelay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.resubscribeDelay):
		}
	}
}
