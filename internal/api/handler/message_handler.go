package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/notify-pipeline/internal/api/dto"
	"github.com/cuongbtq/notify-pipeline/internal/storage"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// MessageHandler serves stored chat messages
type MessageHandler struct {
	logger   *slog.Logger
	messages MessageLister
}

// NewMessageHandler creates a new MessageHandler instance
func NewMessageHandler(deps *Dependencies) *MessageHandler {
	return &MessageHandler{
		logger:   deps.Logger,
		messages: deps.Messages,
	}
}

// ListRoomMessages handles GET /api/v1/rooms/:room/messages
func (h *MessageHandler) ListRoomMessages(c *gin.Context) {
	room := c.Param("room")

	var req dto.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeMessageCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	// one extra row tells whether another page exists
	messages, err := h.messages.ListRoomMessages(c.Request.Context(), storage.MessageFilter{
		Room:   room,
		Cursor: cursor,
		Limit:  req.PageSize + 1,
	})
	if err != nil {
		h.logger.Error("Failed to list room messages",
			slog.String("room", room),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list messages",
		})
		return
	}

	var nextCursor string
	if len(messages) > req.PageSize {
		messages = messages[:req.PageSize]
		last := messages[len(messages)-1]
		nextCursor = EncodeMessageCursor(&storage.MessageCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	c.JSON(http.StatusOK, dto.ListMessagesResponse{
		Messages:   messages,
		NextCursor: nextCursor,
	})
}
