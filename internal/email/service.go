package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/shared/logger"
)

const (
	appName           = "IIITConnect"
	otpExpiresMinutes = 10
	noDeadline        = "No deadline set"
)

type priorityStyle struct {
	color string
	emoji string
}

var priorityStyles = map[string]priorityStyle{
	"low":    {color: "#10B981", emoji: "🟢"},
	"medium": {color: "#F59E0B", emoji: "🟡"},
	"high":   {color: "#EF4444", emoji: "🔴"},
}

// Service renders and sends the application emails
type Service struct {
	cfg       *Config
	sender    Sender
	templates *TemplateService
	log       *slog.Logger
	now       func() time.Time
}

func NewService(cfg *Config, sender Sender, templates *TemplateService, log *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		sender:    sender,
		templates: templates,
		log:       log.With(logger.Scope("email")),
		now:       time.Now,
	}
}

// SendOTPEmail sends the account verification code
func (s *Service) SendOTPEmail(ctx context.Context, email, name, otp string) (*SendResult, error) {
	rendered, err := s.templates.Render("otp", map[string]any{
		"appName":        appName,
		"name":           name,
		"otp":            otp,
		"expiresMinutes": otpExpiresMinutes,
		"year":           s.now().Year(),
	})
	if err != nil {
		return nil, err
	}

	return s.sender.Send(ctx, SendOptions{
		To:      email,
		ToName:  name,
		Subject: fmt.Sprintf("🔐 Verify Your %s Account - Welcome!", appName),
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
}

// SendTaskAssignmentEmail tells a member about a task assigned to them
func (s *Service) SendTaskAssignmentEmail(ctx context.Context, data domain.TaskAssignmentData) (*SendResult, error) {
	priority := strings.ToLower(data.Priority)
	style, ok := priorityStyles[priority]
	if !ok {
		priority = "medium"
		style = priorityStyles[priority]
	}

	rendered, err := s.templates.Render("task_assignment", map[string]any{
		"appName":         appName,
		"recipientName":   data.RecipientName,
		"assignedBy":      data.AssignedBy,
		"projectTitle":    data.ProjectTitle,
		"taskTitle":       data.TaskTitle,
		"taskDescription": data.TaskDescription,
		"priority":        strings.ToUpper(priority),
		"priorityLabel":   style.emoji + " " + strings.ToUpper(priority),
		"priorityColor":   style.color,
		"dueDate":         formatLongDueDate(data.DueDate),
		"projectUrl":      s.projectURL(data.ProjectID),
		"year":            s.now().Year(),
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("Rendered task assignment email",
		slog.String("to", data.RecipientEmail),
		slog.String("task", data.TaskTitle),
	)

	return s.sender.Send(ctx, SendOptions{
		To:      data.RecipientEmail,
		ToName:  data.RecipientName,
		Subject: fmt.Sprintf("📋 New Task Assigned: %s - %s", data.TaskTitle, data.ProjectTitle),
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
}

func (s *Service) projectURL(projectID string) string {
	if s.cfg.AppBaseURL == "" || projectID == "" {
		return ""
	}
	return strings.TrimRight(s.cfg.AppBaseURL, "/") + "/projects/" + projectID
}

func formatLongDueDate(raw string) string {
	due, ok := domain.ParseDueDate(raw)
	if !ok {
		return noDeadline
	}
	return due.Format("Monday, January 2, 2006")
}
