package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/shared/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type settlement struct {
	tag     uint64
	acked   bool
	requeue bool
}

// memoryBroker routes publishes to queues by topic pattern and records how
// every delivery is settled. Anything nacked without requeue lands in deadLettered.
type memoryBroker struct {
	mu           sync.Mutex
	bindings     []rabbitmq.QueueBinding
	queues       map[string]chan amqp.Delivery
	nextTag      uint64
	bodies       map[uint64]amqp.Delivery
	published    []amqp.Publishing
	settlements  []settlement
	deadLettered []amqp.Delivery
	events       []string
	subscribes   int
	subscribeErr error
	publishErr   error
}

func newMemoryBroker() *memoryBroker {
	b := &memoryBroker{
		bindings: []rabbitmq.QueueBinding{
			{Name: domain.QueueEmail, Pattern: domain.PatternEmail},
			{Name: domain.QueueChat, Pattern: domain.PatternChat},
			{Name: domain.QueueGeneral, Pattern: domain.PatternGeneral},
		},
		queues: make(map[string]chan amqp.Delivery),
		bodies: make(map[uint64]amqp.Delivery),
	}
	for _, q := range b.bindings {
		b.queues[q.Name] = make(chan amqp.Delivery, 64)
	}
	return b
}

func (b *memoryBroker) Subscribe(queue, consumerTag string, opts rabbitmq.SubscribeOptions) (<-chan amqp.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribes++
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	ch, ok := b.queues[queue]
	if !ok {
		return nil, errors.New("NOT_FOUND - no queue '" + queue + "'")
	}
	return ch, nil
}

func (b *memoryBroker) PublishRaw(ctx context.Context, routingKey string, body []byte, opts rabbitmq.PublishOptions) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishErr != nil {
		return false, b.publishErr
	}

	b.published = append(b.published, amqp.Publishing{Headers: opts.Headers, Body: body})

	for _, q := range b.bindings {
		if !rabbitmq.MatchesPattern(q.Pattern, routingKey) {
			continue
		}
		b.nextTag++
		d := amqp.Delivery{
			Acknowledger: b,
			DeliveryTag:  b.nextTag,
			RoutingKey:   routingKey,
			ContentType:  "application/json",
			Headers:      opts.Headers,
			Body:         body,
		}
		b.bodies[d.DeliveryTag] = d
		b.queues[q.Name] <- d
	}
	return true, nil
}

func (b *memoryBroker) publishJob(t *testing.T, payload domain.Payload) {
	t.Helper()
	job, err := domain.NewJob(payload)
	require.NoError(t, err)
	body, err := json.Marshal(job)
	require.NoError(t, err)
	key, ok := payload.Kind().RoutingKey()
	require.True(t, ok)
	_, err = b.PublishRaw(context.Background(), key, body, rabbitmq.PublishOptions{})
	require.NoError(t, err)
}

func (b *memoryBroker) publishBody(t *testing.T, routingKey string, body string) {
	t.Helper()
	_, err := b.PublishRaw(context.Background(), routingKey, []byte(body), rabbitmq.PublishOptions{})
	require.NoError(t, err)
}

// resetQueue closes queue's stream and replaces it, as a dropped channel would
func (b *memoryBroker) resetQueue(queue string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	close(b.queues[queue])
	b.queues[queue] = make(chan amqp.Delivery, 64)
}

func (b *memoryBroker) Ack(tag uint64, multiple bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settlements = append(b.settlements, settlement{tag: tag, acked: true})
	b.events = append(b.events, "settle")
	return nil
}

func (b *memoryBroker) Nack(tag uint64, multiple bool, requeue bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settlements = append(b.settlements, settlement{tag: tag, requeue: requeue})
	b.events = append(b.events, "settle")
	if !requeue {
		b.deadLettered = append(b.deadLettered, b.bodies[tag])
	}
	return nil
}

func (b *memoryBroker) Reject(tag uint64, requeue bool) error {
	return b.Nack(tag, false, requeue)
}

func (b *memoryBroker) record(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *memoryBroker) snapshot() (settlements []settlement, dead []amqp.Delivery, published []amqp.Publishing) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]settlement(nil), b.settlements...),
		append([]amqp.Delivery(nil), b.deadLettered...),
		append([]amqp.Publishing(nil), b.published...)
}

func (b *memoryBroker) settledCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.settlements)
}

func (b *memoryBroker) eventLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func (b *memoryBroker) subscribeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribes
}

// runConsume runs Consume in the background and returns a stop function
func runConsume(t *testing.T, w *Worker, queue string, handler Handler, opts ConsumeOptions) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Consume(ctx, queue, handler, opts)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("consumer did not stop")
		}
	})
}

type countingHandler struct {
	mu    sync.Mutex
	calls int
	jobs  []*domain.Job
	fn    func(call int) error
}

func (h *countingHandler) handle(ctx context.Context, job *domain.Job, msg amqp.Delivery) error {
	h.mu.Lock()
	h.calls++
	call := h.calls
	h.jobs = append(h.jobs, job)
	h.mu.Unlock()

	if h.fn == nil {
		return nil
	}
	return h.fn(call)
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}
