package rabbitmq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Messages handed to the broker, by routing key",
		},
		[]string{"routing_key"},
	)

	publishBlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rabbitmq_publish_blocked_total",
			Help: "Publishes made while the broker had flow control active",
		},
	)

	reconnectAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rabbitmq_reconnect_attempts_total",
			Help: "Scheduled reconnection attempts",
		},
	)

	connectedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rabbitmq_connected",
			Help: "1 when a connection and channel are open",
		},
	)
)
