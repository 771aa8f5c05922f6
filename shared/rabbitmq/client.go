package rabbitmq

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrChannelNotAvailable is returned when no channel could be obtained from the broker
	ErrChannelNotAvailable = errors.New("channel not available")

	// ErrClientClosed is returned once Close has been called
	ErrClientClosed = errors.New("rabbitmq client closed")
)

const (
	defaultHeartbeat      = 60 * time.Second
	defaultReconnectDelay = 5 * time.Second
	defaultPrefetchCount  = 1
)

// Config holds RabbitMQ connection configuration
type Config struct {
	URL            string
	ConnectionName string
	Heartbeat      time.Duration
	ReconnectDelay time.Duration
	PrefetchCount  int
	Topology       Topology
}

// Option customises a Client
type Option func(*Client)

// WithDialer replaces the function used to open broker connections
func WithDialer(dial Dialer) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// Client owns the process-wide broker connection and channel.
// The connection is opened lazily and re-established after it drops.
type Client struct {
	config *Config
	logger *slog.Logger
	dial   Dialer

	mu             sync.Mutex
	conn           Connection
	channel        Channel
	closing        bool
	reconnectTimer *time.Timer

	blocked atomic.Bool
}

// NewClient creates a new RabbitMQ client. No connection is made until first use.
func NewClient(config *Config, logger *slog.Logger, opts ...Option) *Client {
	if config.Heartbeat <= 0 {
		config.Heartbeat = defaultHeartbeat
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = defaultReconnectDelay
	}
	if config.PrefetchCount <= 0 {
		config.PrefetchCount = defaultPrefetchCount
	}

	client := &Client{
		config: config,
		logger: logger,
		dial:   dialAMQP,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Topology returns the exchange and queue layout the client declares
func (c *Client) Topology() *Topology {
	return &c.config.Topology
}

// Connect returns the live connection and channel, establishing them if needed.
// On failure a reconnect is scheduled and nil handles are returned with the error.
func (c *Client) Connect() (Connection, Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return nil, nil, ErrClientClosed
	}

	if c.healthyLocked() {
		return c.conn, c.channel, nil
	}

	if err := c.connectLocked(); err != nil {
		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Duration("retry_in", c.config.ReconnectDelay),
		)
		c.scheduleReconnectLocked()
		return nil, nil, err
	}

	return c.conn, c.channel, nil
}

// GetChannel returns the cached channel, connecting first if there is none
func (c *Client) GetChannel() (Channel, error) {
	_, ch, err := c.Connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChannelNotAvailable, err)
	}
	return ch, nil
}

// IsConnected reports whether a connection and channel are currently open
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.healthyLocked()
}

// Blocked reports whether the broker has asked publishers to slow down
func (c *Client) Blocked() bool {
	return c.blocked.Load()
}

// Close closes the channel and then the connection. Errors are logged, never returned.
func (c *Client) Close() {
	c.logger.Info("Closing RabbitMQ connection")

	c.mu.Lock()
	c.closing = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	ch, conn := c.channel, c.conn
	c.channel, c.conn = nil, nil
	c.mu.Unlock()

	connectedGauge.Set(0)

	if ch != nil {
		if err := ch.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
}

func (c *Client) healthyLocked() bool {
	return c.conn != nil && !c.conn.IsClosed() &&
		c.channel != nil && !c.channel.IsClosed()
}

// connectLocked reuses a live connection when only the channel was lost
func (c *Client) connectLocked() error {
	conn := c.conn
	dialed := false

	if conn == nil || conn.IsClosed() {
		amqpConfig := amqp.Config{
			Heartbeat:  c.config.Heartbeat,
			Locale:     "en_US",
			Properties: amqp.NewConnectionProperties(),
		}
		amqpConfig.Properties.SetClientConnectionName(c.config.ConnectionName)

		c.logger.Info("Connecting to RabbitMQ",
			slog.String("connection_name", c.config.ConnectionName),
		)

		var err error
		conn, err = c.dial(c.config.URL, amqpConfig)
		if err != nil {
			return fmt.Errorf("failed to dial RabbitMQ: %w", err)
		}
		dialed = true
	}

	abort := func() {
		if dialed {
			_ = conn.Close()
		}
	}

	ch, err := conn.Channel()
	if err != nil {
		abort()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := ch.Qos(
		c.config.PrefetchCount, // prefetch count
		0,                      // prefetch size
		false,                  // global
	); err != nil {
		_ = ch.Close()
		abort()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := c.config.Topology.Declare(ch); err != nil {
		_ = ch.Close()
		abort()
		return fmt.Errorf("failed to setup topology: %w", err)
	}

	c.conn = conn
	c.channel = ch
	if dialed {
		c.blocked.Store(false)
		c.watchConnection(conn)
	}
	c.watchChannel(ch)
	connectedGauge.Set(1)

	c.logger.Info("RabbitMQ client initialized",
		slog.String("exchange", c.config.Topology.Exchange),
		slog.Int("queues", len(c.config.Topology.Queues)),
		slog.Int("prefetch_count", c.config.PrefetchCount),
	)

	return nil
}

// scheduleReconnectLocked arms a single pending reconnect; retries forever at a fixed delay
func (c *Client) scheduleReconnectLocked() {
	if c.closing || c.reconnectTimer != nil {
		return
	}

	c.reconnectTimer = time.AfterFunc(c.config.ReconnectDelay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		closing := c.closing
		c.mu.Unlock()

		if closing {
			return
		}

		reconnectAttemptsTotal.Inc()
		c.logger.Info("Attempting to reconnect to RabbitMQ")
		_, _, _ = c.Connect()
	})
}

func (c *Client) watchConnection(conn Connection) {
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	blocked := conn.NotifyBlocked(make(chan amqp.Blocking, 1))

	go func() {
		for {
			select {
			case b, ok := <-blocked:
				if !ok {
					blocked = nil
					continue
				}
				c.blocked.Store(b.Active)
				if b.Active {
					c.logger.Warn("RabbitMQ connection blocked",
						slog.String("reason", b.Reason),
					)
				} else {
					c.logger.Info("RabbitMQ connection unblocked")
				}
			case amqpErr := <-closed:
				c.handleConnectionClosed(conn, amqpErr)
				return
			}
		}
	}()
}

func (c *Client) handleConnectionClosed(conn Connection, amqpErr *amqp.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return
	}

	if amqpErr != nil {
		c.logger.Error("RabbitMQ connection error",
			slog.Any("error", amqpErr),
		)
	}

	c.conn = nil
	c.channel = nil
	c.blocked.Store(false)
	connectedGauge.Set(0)

	if c.closing {
		return
	}

	c.logger.Warn("RabbitMQ connection closed, reconnecting",
		slog.Duration("retry_in", c.config.ReconnectDelay),
	)
	c.scheduleReconnectLocked()
}

func (c *Client) watchChannel(ch Channel) {
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	go func() {
		amqpErr := <-closed

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.channel != ch {
			return
		}
		c.channel = nil
		connectedGauge.Set(0)

		if amqpErr != nil {
			c.logger.Warn("RabbitMQ channel closed",
				slog.Any("error", amqpErr),
			)
		}
	}()
}
