package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/internal/notifier"
	"github.com/cuongbtq/notify-pipeline/internal/storage"
	"github.com/cuongbtq/notify-pipeline/shared/rabbitmq"
)

// BrokerStatus reports the state of the broker connection
type BrokerStatus interface {
	IsConnected() bool
	Blocked() bool
}

var _ BrokerStatus = (*rabbitmq.Client)(nil)

// MessageLister pages through stored room messages
type MessageLister interface {
	ListRoomMessages(ctx context.Context, filter storage.MessageFilter) ([]domain.ChatMessage, error)
}

var _ MessageLister = (*storage.MessageStore)(nil)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	ServiceName string
	Notifier    notifier.Notifier
	// Broker is nil in direct mode
	Broker BrokerStatus
	// Messages is nil when no database is configured
	Messages MessageLister
}
