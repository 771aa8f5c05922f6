package rabbitmq

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTopology() Topology {
	return Topology{
		Exchange: "iiitconnect_exchange",
		Queues: []QueueBinding{
			{Name: "email_notifications", Pattern: "email.#"},
			{Name: "chat_notifications", Pattern: "chat.#"},
			{Name: "general_notifications", Pattern: "general.#"},
		},
		MessageTTL: 24 * time.Hour,
	}
}

func TestTopology_DeclareIsIdempotent(t *testing.T) {
	broker := newFakeBroker()
	ch := &fakeChannel{broker: broker}
	topology := testTopology()

	require.NoError(t, topology.Declare(ch))
	exchanges, queues, bindings := broker.snapshot()

	require.NoError(t, topology.Declare(ch))
	exchanges2, queues2, bindings2 := broker.snapshot()

	assert.Equal(t, exchanges, exchanges2)
	assert.Equal(t, queues, queues2)
	assert.Equal(t, bindings, bindings2)

	assert.Len(t, exchanges, 2)
	assert.Len(t, queues, 6)
	assert.Len(t, bindings, 6)
}

func TestTopology_Graph(t *testing.T) {
	broker := newFakeBroker()
	topology := testTopology()
	require.NoError(t, topology.Declare(&fakeChannel{broker: broker}))

	exchanges, queues, bindings := broker.snapshot()

	assert.Equal(t, map[string]string{
		"iiitconnect_exchange":     amqp.ExchangeTopic,
		"iiitconnect_exchange_dlx": amqp.ExchangeTopic,
	}, exchanges)

	assert.Equal(t, amqp.Table{
		"x-dead-letter-exchange":    "iiitconnect_exchange_dlx",
		"x-dead-letter-routing-key": "email_notifications.dead",
		"x-message-ttl":             int64(86400000),
	}, queues["email_notifications"])
	assert.Nil(t, queues["email_notifications_dlq"])

	expected := [][3]string{
		{"email_notifications", "email.#", "iiitconnect_exchange"},
		{"chat_notifications", "chat.#", "iiitconnect_exchange"},
		{"general_notifications", "general.#", "iiitconnect_exchange"},
		{"email_notifications_dlq", "email_notifications.#", "iiitconnect_exchange_dlx"},
		{"chat_notifications_dlq", "chat_notifications.#", "iiitconnect_exchange_dlx"},
		{"general_notifications_dlq", "general_notifications.#", "iiitconnect_exchange_dlx"},
	}
	for _, b := range expected {
		assert.True(t, bindings[b], "missing binding %v", b)
	}
}

func TestTopology_DeadLetterKeyMatchesDLQBinding(t *testing.T) {
	for _, q := range testTopology().Queues {
		assert.True(t, MatchesPattern(q.Name+".#", DeadLetterRoutingKey(q.Name)), q.Name)
	}
}

func TestTopology_WithoutTTL(t *testing.T) {
	broker := newFakeBroker()
	topology := testTopology()
	topology.MessageTTL = 0

	require.NoError(t, topology.Declare(&fakeChannel{broker: broker}))

	_, queues, _ := broker.snapshot()
	assert.NotContains(t, queues["chat_notifications"], "x-message-ttl")
}

func TestTopology_ConflictingRedeclareFails(t *testing.T) {
	broker := newFakeBroker()
	ch := &fakeChannel{broker: broker}

	topology := testTopology()
	require.NoError(t, topology.Declare(ch))

	topology.MessageTTL = time.Hour
	err := topology.Declare(ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to declare queue email_notifications")
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{pattern: "email.#", key: "email.otp", want: true},
		{pattern: "email.#", key: "email", want: true},
		{pattern: "email.#", key: "email.task.assignment", want: true},
		{pattern: "email.#", key: "chat.task_status", want: false},
		{pattern: "chat.*", key: "chat.task_delete", want: true},
		{pattern: "chat.*", key: "chat", want: false},
		{pattern: "chat.*", key: "chat.a.b", want: false},
		{pattern: "#", key: "anything.at.all", want: true},
		{pattern: "general.#", key: "generalx.one", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPattern(tt.pattern, tt.key))
		})
	}
}

func TestTopology_QueueFor(t *testing.T) {
	topology := testTopology()

	queue, ok := topology.QueueFor("email.task_assignment")
	require.True(t, ok)
	assert.Equal(t, "email_notifications", queue)

	queue, ok = topology.QueueFor("chat.task_status")
	require.True(t, ok)
	assert.Equal(t, "chat_notifications", queue)

	_, ok = topology.QueueFor("audit.login")
	assert.False(t, ok)
}
