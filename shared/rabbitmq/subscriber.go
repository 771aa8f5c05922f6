package rabbitmq

import (
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SubscribeOptions are passed through to the broker consume call
type SubscribeOptions struct {
	Exclusive bool
	Args      amqp.Table
}

// Subscribe starts a manual-ack consumer on queue.
// The returned channel is closed when the subscription's channel or connection goes away.
func (c *Client) Subscribe(queue, consumerTag string, opts SubscribeOptions) (<-chan amqp.Delivery, error) {
	ch, err := c.GetChannel()
	if err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(
		queue,          // queue
		consumerTag,    // consumer tag
		false,          // auto-ack
		opts.Exclusive, // exclusive
		false,          // no-local
		false,          // no-wait
		opts.Args,      // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	c.logger.Info("Started consuming messages from RabbitMQ",
		slog.String("queue", queue),
		slog.String("consumer_tag", consumerTag),
	)

	return deliveries, nil
}

// QueueDepth returns the number of ready messages in an existing queue
func (c *Client) QueueDepth(queue string) (int, error) {
	ch, err := c.GetChannel()
	if err != nil {
		return 0, err
	}

	q, err := ch.QueueDeclarePassive(
		queue, // name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue %s: %w", queue, err)
	}

	return q.Messages, nil
}
