package rabbitmq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type publishedMessage struct {
	exchange   string
	routingKey string
	msg        amqp.Publishing
}

// fakeBroker keeps declared state the way a broker does: redeclaring
// with the same arguments is a no-op, with different ones a precondition failure.
type fakeBroker struct {
	mu        sync.Mutex
	exchanges map[string]string
	queues    map[string]amqp.Table
	depths    map[string]int
	bindings  map[[3]string]bool
	published []publishedMessage
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		exchanges: make(map[string]string),
		queues:    make(map[string]amqp.Table),
		depths:    make(map[string]int),
		bindings:  make(map[[3]string]bool),
	}
}

func (b *fakeBroker) snapshot() (map[string]string, map[string]amqp.Table, map[[3]string]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	exchanges := make(map[string]string, len(b.exchanges))
	for k, v := range b.exchanges {
		exchanges[k] = v
	}
	queues := make(map[string]amqp.Table, len(b.queues))
	for k, v := range b.queues {
		queues[k] = v
	}
	bindings := make(map[[3]string]bool, len(b.bindings))
	for k, v := range b.bindings {
		bindings[k] = v
	}
	return exchanges, queues, bindings
}

func (b *fakeBroker) messages() []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedMessage(nil), b.published...)
}

type consumeCall struct {
	queue    string
	consumer string
	autoAck  bool
}

type fakeChannel struct {
	broker *fakeBroker

	mu         sync.Mutex
	prefetch   int
	closed     bool
	notify     []chan *amqp.Error
	consumes   []consumeCall
	publishErr error
	closeErr   error
}

func (ch *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.prefetch = prefetchCount
	return nil
}

func (ch *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if existing, ok := ch.broker.exchanges[name]; ok && existing != kind {
		return &amqp.Error{Code: amqp.PreconditionFailed, Reason: "inequivalent arg 'type'"}
	}
	ch.broker.exchanges[name] = kind
	return nil
}

func (ch *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if existing, ok := ch.broker.queues[name]; ok && !reflect.DeepEqual(existing, args) {
		return amqp.Queue{}, &amqp.Error{Code: amqp.PreconditionFailed, Reason: "inequivalent arg"}
	}
	ch.broker.queues[name] = args
	return amqp.Queue{Name: name, Messages: ch.broker.depths[name]}, nil
}

func (ch *fakeChannel) QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if _, ok := ch.broker.queues[name]; !ok {
		return amqp.Queue{}, &amqp.Error{Code: amqp.NotFound, Reason: "no queue '" + name + "'"}
	}
	return amqp.Queue{Name: name, Messages: ch.broker.depths[name]}, nil
}

func (ch *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if _, ok := ch.broker.queues[name]; !ok {
		return &amqp.Error{Code: amqp.NotFound, Reason: "no queue '" + name + "'"}
	}
	if _, ok := ch.broker.exchanges[exchange]; !ok {
		return &amqp.Error{Code: amqp.NotFound, Reason: "no exchange '" + exchange + "'"}
	}
	ch.broker.bindings[[3]string{name, key, exchange}] = true
	return nil
}

func (ch *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	ch.mu.Lock()
	err := ch.publishErr
	ch.mu.Unlock()
	if err != nil {
		return err
	}

	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()
	ch.broker.published = append(ch.broker.published, publishedMessage{exchange: exchange, routingKey: key, msg: msg})
	return nil
}

func (ch *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.consumes = append(ch.consumes, consumeCall{queue: queue, consumer: consumer, autoAck: autoAck})
	return make(chan amqp.Delivery), nil
}

func (ch *fakeChannel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.notify = append(ch.notify, receiver)
	return receiver
}

func (ch *fakeChannel) IsClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

func (ch *fakeChannel) Close() error {
	ch.shutdown(nil)
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closeErr
}

func (ch *fakeChannel) shutdown(err *amqp.Error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		return
	}
	ch.closed = true
	for _, n := range ch.notify {
		if err != nil {
			n <- err
		}
		close(n)
	}
	ch.notify = nil
}

type fakeConnection struct {
	broker *fakeBroker

	mu         sync.Mutex
	closed     bool
	channels   []*fakeChannel
	notify     []chan *amqp.Error
	blocked    []chan amqp.Blocking
	channelErr error
	closeErr   error
}

func (c *fakeConnection) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channelErr != nil {
		return nil, c.channelErr
	}
	ch := &fakeChannel{broker: c.broker}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *fakeConnection) lastChannel() *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[len(c.channels)-1]
}

func (c *fakeConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = append(c.notify, receiver)
	return receiver
}

func (c *fakeConnection) NotifyBlocked(receiver chan amqp.Blocking) chan amqp.Blocking {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked = append(c.blocked, receiver)
	return receiver
}

func (c *fakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConnection) Close() error {
	c.shutdown(nil)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// drop simulates the broker severing the connection
func (c *fakeConnection) drop() {
	c.shutdown(&amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED - broker forced connection closure"})
}

func (c *fakeConnection) setBlocked(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.blocked {
		b <- amqp.Blocking{Active: active, Reason: "low on memory"}
	}
}

func (c *fakeConnection) shutdown(err *amqp.Error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	channels := c.channels
	notify := c.notify
	blocked := c.blocked
	c.notify, c.blocked = nil, nil
	c.mu.Unlock()

	for _, ch := range channels {
		ch.shutdown(err)
	}
	for _, n := range notify {
		if err != nil {
			n <- err
		}
		close(n)
	}
	for _, b := range blocked {
		close(b)
	}
}

type fakeDialer struct {
	broker *fakeBroker

	mu      sync.Mutex
	fail    int
	calls   int
	conns   []*fakeConnection
	configs []amqp.Config
}

func newFakeDialer(broker *fakeBroker) *fakeDialer {
	return &fakeDialer{broker: broker}
}

func (d *fakeDialer) Dial(url string, config amqp.Config) (Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	d.configs = append(d.configs, config)
	if d.fail > 0 {
		d.fail--
		return nil, errors.New("dial tcp 127.0.0.1:5672: connect: connection refused")
	}

	conn := &fakeConnection{broker: d.broker}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) lastConn() *fakeConnection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}
