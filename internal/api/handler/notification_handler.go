package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/notify-pipeline/internal/api/dto"
	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/internal/notifier"
	"github.com/gin-gonic/gin"
)

// NotificationHandler turns producer requests into notification jobs
type NotificationHandler struct {
	logger   *slog.Logger
	notifier notifier.Notifier
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger:   deps.Logger,
		notifier: deps.Notifier,
	}
}

// OTPEmail handles POST /api/v1/notifications/otp-email
func (h *NotificationHandler) OTPEmail(c *gin.Context) {
	enqueue[dto.OTPEmailRequest](h, c, h.notifier.PublishOTPEmailJob)
}

// TaskAssignment handles POST /api/v1/notifications/task-assignment
func (h *NotificationHandler) TaskAssignment(c *gin.Context) {
	enqueue[dto.TaskAssignmentRequest](h, c, h.notifier.PublishEmailJob)
}

// TaskCreated handles POST /api/v1/notifications/task-created
func (h *NotificationHandler) TaskCreated(c *gin.Context) {
	enqueue[dto.TaskCreatedRequest](h, c, h.notifier.PublishChatJob)
}

// TaskStatus handles POST /api/v1/notifications/task-status
func (h *NotificationHandler) TaskStatus(c *gin.Context) {
	enqueue[dto.TaskStatusRequest](h, c, h.notifier.PublishTaskStatusJob)
}

// TaskDeleted handles POST /api/v1/notifications/task-deleted
func (h *NotificationHandler) TaskDeleted(c *gin.Context) {
	enqueue[dto.TaskDeletedRequest](h, c, h.notifier.PublishTaskDeleteJob)
}

// enqueue binds a request of type R, converts it to its payload and hands it to publish
func enqueue[R interface{ Payload() P }, P domain.Payload](
	h *NotificationHandler,
	c *gin.Context,
	publish func(context.Context, P) (notifier.Status, error),
) {
	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	payload := req.Payload()
	if err := payload.Validate(); err != nil {
		h.logger.Warn("Invalid notification payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	kind := string(payload.Kind())
	status, err := publish(c.Request.Context(), payload)
	if err != nil {
		h.logger.Error("Failed to enqueue notification",
			slog.String("job_type", kind),
			slog.Any("error", err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to enqueue notification",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.EnqueueResponse{
		Status:  string(status),
		JobType: kind,
	})
}
