package rabbitmq

import (
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	deadLetterExchangeSuffix = "_dlx"
	deadLetterQueueSuffix    = "_dlq"
	deadLetterKeySuffix      = ".dead"
)

// QueueBinding maps a queue to the routing pattern it receives from the main exchange
type QueueBinding struct {
	Name    string
	Pattern string
}

// Topology describes the exchanges, queues and dead-letter wiring declared on every connect
type Topology struct {
	Exchange   string
	Queues     []QueueBinding
	MessageTTL time.Duration
}

// DeadLetterExchange returns the name of the exchange dead-lettered messages go to
func (t *Topology) DeadLetterExchange() string {
	return t.Exchange + deadLetterExchangeSuffix
}

// DeadLetterQueue returns the name of the dead-letter queue paired with queue
func DeadLetterQueue(queue string) string {
	return queue + deadLetterQueueSuffix
}

// DeadLetterRoutingKey is the key the broker uses when it dead-letters a message from queue
func DeadLetterRoutingKey(queue string) string {
	return queue + deadLetterKeySuffix
}

// Declare provisions the topology on ch. Every step is an idempotent broker declare.
func (t *Topology) Declare(ch Channel) error {
	for _, exchange := range []string{t.Exchange, t.DeadLetterExchange()} {
		err := ch.ExchangeDeclare(
			exchange,           // name
			amqp.ExchangeTopic, // type
			true,               // durable
			false,              // auto-deleted
			false,              // internal
			false,              // no-wait
			nil,                // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	for _, q := range t.Queues {
		if _, err := ch.QueueDeclare(
			q.Name, // name
			true,   // durable
			false,  // auto-delete
			false,  // exclusive
			false,  // no-wait
			t.queueArgs(q.Name),
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.Name, err)
		}

		dlq := DeadLetterQueue(q.Name)
		if _, err := ch.QueueDeclare(
			dlq,   // name
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("failed to declare dead-letter queue %s: %w", dlq, err)
		}

		if err := ch.QueueBind(
			dlq,                    // queue name
			q.Name+".#",            // routing key
			t.DeadLetterExchange(), // exchange
			false,                  // no-wait
			nil,                    // arguments
		); err != nil {
			return fmt.Errorf("failed to bind dead-letter queue %s: %w", dlq, err)
		}
	}

	for _, q := range t.Queues {
		if err := ch.QueueBind(
			q.Name,     // queue name
			q.Pattern,  // routing key
			t.Exchange, // exchange
			false,      // no-wait
			nil,        // arguments
		); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", q.Name, err)
		}
	}

	return nil
}

func (t *Topology) queueArgs(queue string) amqp.Table {
	args := amqp.Table{
		"x-dead-letter-exchange":    t.DeadLetterExchange(),
		"x-dead-letter-routing-key": DeadLetterRoutingKey(queue),
	}
	if t.MessageTTL > 0 {
		args["x-message-ttl"] = t.MessageTTL.Milliseconds()
	}
	return args
}

// MatchesPattern reports whether routingKey matches a topic binding pattern.
// Supports "*" for exactly one word and "#" for zero or more words.
func MatchesPattern(pattern, routingKey string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(routingKey, "."))
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}

	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchWords(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchWords(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchWords(pattern[1:], key[1:])
	}
}

// QueueFor returns the queue whose binding pattern matches routingKey
func (t *Topology) QueueFor(routingKey string) (string, bool) {
	for _, q := range t.Queues {
		if MatchesPattern(q.Pattern, routingKey) {
			return q.Name, true
		}
	}
	return "", false
}
