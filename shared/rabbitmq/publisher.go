package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const contentTypeJSON = "application/json"

// PublishOptions override the publishing defaults. Zero values keep the default.
type PublishOptions struct {
	Headers      amqp.Table
	ContentType  string    // default application/json
	DeliveryMode uint8     // default amqp.Persistent
	Timestamp    time.Time // default now
	MessageID    string
	Expiration   string
	Priority     uint8
}

func (o PublishOptions) publishing(body []byte) amqp.Publishing {
	msg := amqp.Publishing{
		Headers:      o.Headers,
		ContentType:  o.ContentType,
		DeliveryMode: o.DeliveryMode,
		Timestamp:    o.Timestamp,
		MessageId:    o.MessageID,
		Expiration:   o.Expiration,
		Priority:     o.Priority,
		Body:         body,
	}

	if msg.ContentType == "" {
		msg.ContentType = contentTypeJSON
	}
	if msg.DeliveryMode == 0 {
		msg.DeliveryMode = amqp.Persistent
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	return msg
}

// Publish serialises payload as JSON and publishes it to the main exchange.
// The boolean is false when the broker is applying flow control; the message
// has still been handed over and the caller need not retry.
func (c *Client) Publish(ctx context.Context, routingKey string, payload any, opts PublishOptions) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return c.PublishRaw(ctx, routingKey, body, opts)
}

// PublishRaw publishes an already encoded body to the main exchange
func (c *Client) PublishRaw(ctx context.Context, routingKey string, body []byte, opts PublishOptions) (bool, error) {
	ch, err := c.GetChannel()
	if err != nil {
		return false, err
	}

	err = ch.PublishWithContext(
		ctx,
		c.config.Topology.Exchange, // exchange
		routingKey,                 // routing key
		false,                      // mandatory
		false,                      // immediate
		opts.publishing(body),
	)
	if err != nil {
		c.logger.Error("Failed to publish message to RabbitMQ",
			slog.String("routing_key", routingKey),
			slog.Any("error", err),
		)
		return false, fmt.Errorf("failed to publish message: %w", err)
	}

	publishedTotal.WithLabelValues(routingKey).Inc()

	if c.blocked.Load() {
		publishBlockedTotal.Inc()
		c.logger.Warn("RabbitMQ message buffer full",
			slog.String("routing_key", routingKey),
		)
		return false, nil
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("routing_key", routingKey),
		slog.Int("body_size", len(body)),
	)

	return true, nil
}
