package email

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/notify-pipeline/shared/logger"
	"github.com/google/uuid"
)

// SendOptions describes one outgoing email
type SendOptions struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// SendResult reports the outcome of a send. Delivery failures are reported
// here rather than as an error.
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// Sender transmits a rendered email
type Sender interface {
	Send(ctx context.Context, opts SendOptions) (*SendResult, error)
}

// NewSender returns a Mailgun sender when configured and enabled, otherwise a
// sender that only logs.
func NewSender(cfg *Config, log *slog.Logger) Sender {
	if cfg.Enabled && cfg.IsConfigured() {
		if sender := NewMailgunSender(cfg, log); sender != nil {
			log.Info("Using Mailgun email sender",
				slog.String("domain", cfg.MailgunDomain),
				slog.String("from", cfg.FromEmail),
			)
			return sender
		}
	}

	log.Info("Using log-only email sender (Mailgun not configured or email disabled)")
	return &LogSender{log: log.With(logger.Scope("email.log"))}
}

// LogSender records emails in the log instead of delivering them
type LogSender struct {
	log *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, opts SendOptions) (*SendResult, error) {
	messageID := "log-" + uuid.NewString()

	s.log.Info("Email send (log only)",
		slog.String("to", opts.To),
		slog.String("subject", opts.Subject),
		slog.String("message_id", messageID),
	)
	s.log.Debug("Email body", slog.String("text", opts.Text))

	return &SendResult{Success: true, MessageID: messageID}, nil
}
