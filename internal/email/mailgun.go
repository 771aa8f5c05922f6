package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/cuongbtq/notify-pipeline/shared/logger"
)

const sendTimeout = 30 * time.Second

// MailgunSender sends emails through the Mailgun API
type MailgunSender struct {
	cfg    *Config
	log    *slog.Logger
	client *mailgun.MailgunImpl
}

// NewMailgunSender returns nil if Mailgun is not configured
func NewMailgunSender(cfg *Config, log *slog.Logger) *MailgunSender {
	if !cfg.IsConfigured() {
		return nil
	}

	return &MailgunSender{
		cfg:    cfg,
		log:    log.With(logger.Scope("email.mailgun")),
		client: mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
	}
}

func (s *MailgunSender) Send(ctx context.Context, opts SendOptions) (*SendResult, error) {
	if s.cfg.FromEmail == "" {
		return &SendResult{Success: false, Error: "EMAIL_FROM_ADDRESS is required"}, nil
	}

	to := opts.To
	if opts.ToName != "" {
		to = fmt.Sprintf("%s <%s>", opts.ToName, opts.To)
	}
	from := fmt.Sprintf("%s <%s>", s.cfg.fromName(), s.cfg.FromEmail)

	message := s.client.NewMessage(from, opts.Subject, opts.Text, to)
	if opts.HTML != "" {
		message.SetHtml(opts.HTML)
	}

	s.log.Debug("Sending email",
		slog.String("to", opts.To),
		slog.String("subject", opts.Subject),
	)

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, messageID, err := s.client.Send(sendCtx, message)
	if err != nil {
		s.log.Error("Failed to send email",
			slog.String("to", opts.To),
			slog.Any("error", err),
		)
		return &SendResult{Success: false, Error: err.Error()}, nil
	}

	s.log.Info("Email sent successfully",
		slog.String("to", opts.To),
		slog.String("message_id", messageID),
	)

	return &SendResult{Success: true, MessageID: messageID}, nil
}
