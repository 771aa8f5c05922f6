// Package realtime pushes chat messages to the socket gateway through Redis Pub/Sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/shared/logger"
)

// EventChatMessage is the event name socket clients listen on
const EventChatMessage = "chat message"

// ChannelPrefix is prepended to the room id to form the Pub/Sub channel
const ChannelPrefix = "chat:room:"

// Event is the envelope published for each broadcast
type Event struct {
	Event   string              `json:"event"`
	Room    string              `json:"room"`
	Message *domain.ChatMessage `json:"message"`
}

// Publisher is the subset of the Redis client used for broadcasting
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

var _ Publisher = (*redis.Client)(nil)

// RedisBroadcaster publishes room events to Redis
type RedisBroadcaster struct {
	client Publisher
	log    *slog.Logger
}

func NewRedisBroadcaster(client Publisher, log *slog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		client: client,
		log:    log.With(logger.Scope("realtime")),
	}
}

// BroadcastToRoom publishes msg to the room's channel
func (b *RedisBroadcaster) BroadcastToRoom(ctx context.Context, room string, msg *domain.ChatMessage) error {
	data, err := json.Marshal(Event{Event: EventChatMessage, Room: room, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := b.client.Publish(ctx, ChannelPrefix+room, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to room %s: %w", room, err)
	}

	b.log.Debug("Broadcast to room",
		slog.String("room", room),
		slog.Int64("receivers", receivers),
	)
	return nil
}

// LogBroadcaster only logs broadcasts. Used when Redis is not configured.
type LogBroadcaster struct {
	log *slog.Logger
}

func NewLogBroadcaster(log *slog.Logger) *LogBroadcaster {
	return &LogBroadcaster{log: log.With(logger.Scope("realtime"))}
}

func (b *LogBroadcaster) BroadcastToRoom(ctx context.Context, room string, msg *domain.ChatMessage) error {
	b.log.Info("Broadcast to room (log only)",
		slog.String("room", room),
		slog.Int64("message_id", msg.ID),
	)
	return nil
}
