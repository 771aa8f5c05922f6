// Package notification performs the side effects of notification jobs:
// transactional emails and system messages in project chat rooms.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/internal/email"
	"github.com/cuongbtq/notify-pipeline/shared/logger"
)

// ErrDeliveryFailed is returned when the email provider reports an unsuccessful send
var ErrDeliveryFailed = errors.New("email delivery failed")

// EmailService renders and sends the application emails
type EmailService interface {
	SendOTPEmail(ctx context.Context, to, name, otp string) (*email.SendResult, error)
	SendTaskAssignmentEmail(ctx context.Context, data domain.TaskAssignmentData) (*email.SendResult, error)
}

// MessageStore persists chat messages
type MessageStore interface {
	CreateSystemMessage(ctx context.Context, text, room string) (*domain.ChatMessage, error)
}

// Broadcaster pushes a stored message to the subscribers of a room
type Broadcaster interface {
	BroadcastToRoom(ctx context.Context, room string, msg *domain.ChatMessage) error
}

var (
	_ EmailService    = (*email.Service)(nil)
	_ domain.Handlers = (*Service)(nil)
)

// Service handles every job kind
type Service struct {
	email       EmailService
	store       MessageStore
	broadcaster Broadcaster
	log         *slog.Logger
}

func NewService(emailSvc EmailService, store MessageStore, broadcaster Broadcaster, log *slog.Logger) *Service {
	return &Service{
		email:       emailSvc,
		store:       store,
		broadcaster: broadcaster,
		log:         log.With(logger.Scope("notification")),
	}
}

func (s *Service) HandleTaskAssignment(ctx context.Context, data domain.TaskAssignmentData) error {
	result, err := s.email.SendTaskAssignmentEmail(ctx, data)
	if err := checkSend(result, err); err != nil {
		return fmt.Errorf("failed to send task assignment email to %s: %w", data.RecipientEmail, err)
	}

	s.log.Info("Task assignment email sent",
		slog.String("to", data.RecipientEmail),
		slog.String("message_id", result.MessageID),
	)
	return nil
}

func (s *Service) HandleOTPEmail(ctx context.Context, data domain.OTPEmailData) error {
	result, err := s.email.SendOTPEmail(ctx, data.Email, data.Name, data.OTP)
	if err := checkSend(result, err); err != nil {
		return fmt.Errorf("failed to send OTP email to %s: %w", data.Email, err)
	}

	s.log.Info("OTP email sent",
		slog.String("to", data.Email),
		slog.String("message_id", result.MessageID),
	)
	return nil
}

func (s *Service) HandleTaskNotification(ctx context.Context, data domain.TaskNotificationData) error {
	return s.postSystemMessage(ctx, data.ProjectID, TaskNotificationText(data))
}

func (s *Service) HandleTaskStatusUpdate(ctx context.Context, data domain.TaskStatusData) error {
	return s.postSystemMessage(ctx, data.ProjectID, TaskStatusText(data))
}

func (s *Service) HandleTaskDelete(ctx context.Context, data domain.TaskDeleteData) error {
	return s.postSystemMessage(ctx, data.ProjectID, TaskDeleteText(data))
}

// postSystemMessage stores text in the project room and broadcasts it
func (s *Service) postSystemMessage(ctx context.Context, projectID, text string) error {
	room := RoomID(projectID)

	msg, err := s.store.CreateSystemMessage(ctx, text, room)
	if err != nil {
		return fmt.Errorf("failed to save system message: %w", err)
	}

	if err := s.broadcaster.BroadcastToRoom(ctx, room, msg); err != nil {
		return fmt.Errorf("failed to broadcast system message: %w", err)
	}

	s.log.Debug("System message posted",
		slog.String("room", room),
		slog.Int64("message_id", msg.ID),
	)
	return nil
}

func checkSend(result *email.SendResult, err error) error {
	if err != nil {
		return err
	}
	if result == nil || !result.Success {
		reason := "no result"
		if result != nil {
			reason = result.Error
		}
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, reason)
	}
	return nil
}
