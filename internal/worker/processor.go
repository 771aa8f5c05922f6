package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/internal/metrics"
	"github.com/cuongbtq/notify-pipeline/shared/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrJobTimeout is reported when a handler outlives the job timeout
var ErrJobTimeout = errors.New("job timed out")

// processDelivery runs one delivery through the handler and settles it:
// ack on success, republish with x-retry-count+1 while retries remain,
// otherwise nack without requeue so the broker dead-letters it.
func (w *Worker) processDelivery(ctx context.Context, queue string, d amqp.Delivery, handler Handler, opts ConsumeOptions) {
	job, err := domain.ParseJob(d.Body)
	if err != nil {
		w.logger.Error("Failed to parse message JSON",
			slog.String("queue", queue),
			slog.String("body", string(d.Body)),
			slog.Any("error", err),
		)
		w.nack(queue, d, metrics.OutcomeDeadLettered)
		return
	}

	log := w.logger.With(
		slog.String("queue", queue),
		slog.String("job_type", string(job.Type)),
		slog.Uint64("delivery_tag", d.DeliveryTag),
	)
	log.Info("Processing job")

	start := time.Now()
	err = w.runHandler(ctx, handler, job, d, opts.JobTimeout)
	metrics.HandlerDuration.WithLabelValues(queue).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		log.Info("Job completed successfully")
		w.ack(queue, d, metrics.OutcomeAcked)

	case errors.Is(err, domain.ErrUnknownJobType):
		log.Warn("Unknown job type, dropping", slog.Any("error", err))
		w.ack(queue, d, metrics.OutcomeDropped)

	case errors.Is(err, domain.ErrInvalidPayload):
		log.Error("Invalid job payload", slog.Any("error", err))
		w.nack(queue, d, metrics.OutcomeDeadLettered)

	default:
		w.retryOrDeadLetter(ctx, log, queue, d, err, opts.MaxRetries)
	}
}

func (w *Worker) retryOrDeadLetter(ctx context.Context, log *slog.Logger, queue string, d amqp.Delivery, jobErr error, maxRetries int) {
	retryCount := retryCountOf(d.Headers)

	if retryCount >= maxRetries {
		log.Error("Job exceeded max retries, dead-lettering",
			slog.Int("retry_count", retryCount),
			slog.Int("max_retries", maxRetries),
			slog.Any("error", jobErr),
		)
		w.nack(queue, d, metrics.OutcomeDeadLettered)
		return
	}

	log.Warn("Job failed, scheduling retry",
		slog.Int("retry_count", retryCount),
		slog.Int("max_retries", maxRetries),
		slog.Any("error", jobErr),
	)

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[domain.HeaderRetryCount] = int32(retryCount + 1)

	// The shutdown signal must not abort a republish whose original is still unsettled.
	_, err := w.broker.PublishRaw(context.WithoutCancel(ctx), d.RoutingKey, d.Body, rabbitmq.PublishOptions{
		Headers:     headers,
		ContentType: d.ContentType,
		MessageID:   d.MessageId,
	})
	if err != nil {
		log.Error("Failed to republish job for retry",
			slog.Any("error", err),
		)
		w.nack(queue, d, metrics.OutcomeDeadLettered)
		return
	}

	w.ack(queue, d, metrics.OutcomeRetried)
}

// runHandler bounds the handler by timeout and turns a panic into an error
func (w *Worker) runHandler(ctx context.Context, handler Handler, job *domain.Job, d amqp.Delivery, timeout time.Duration) error {
	jobCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		done <- handler(jobCtx, job, d)
	}()

	select {
	case err := <-done:
		return err
	case <-jobCtx.Done():
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrJobTimeout, timeout)
		}
		// worker shutting down: let the handler finish so the delivery is settled by outcome
		return <-done
	}
}

func (w *Worker) ack(queue string, d amqp.Delivery, outcome string) {
	if err := d.Ack(false); err != nil {
		w.logger.Error("Failed to ACK message",
			slog.String("queue", queue),
			slog.Uint64("delivery_tag", d.DeliveryTag),
			slog.Any("error", err),
		)
		return
	}
	metrics.JobsSettled.WithLabelValues(queue, outcome).Inc()
}

func (w *Worker) nack(queue string, d amqp.Delivery, outcome string) {
	if err := d.Nack(false, false); err != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("queue", queue),
			slog.Uint64("delivery_tag", d.DeliveryTag),
			slog.Any("error", err),
		)
		return
	}
	metrics.JobsSettled.WithLabelValues(queue, outcome).Inc()
}

// retryCountOf reads x-retry-count, tolerating the integer widths different publishers use
func retryCountOf(headers amqp.Table) int {
	switch v := headers[domain.HeaderRetryCount].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
