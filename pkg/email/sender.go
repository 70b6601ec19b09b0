// Package email delivers transactional HTML mail.
package email

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// Sender delivers one message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
	GetName() string
}

// sendClient is the part of the SendGrid client we use
type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridConfig holds SendGrid sender configuration
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends mail through the SendGrid v3 API
type SendGridSender struct {
	client sendClient
	from   *mail.Email
	logger *logrus.Logger
}

// NewSendGridSender creates a SendGrid-backed sender
func NewSendGridSender(cfg SendGridConfig, logger *logrus.Logger) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// GetName returns the name of this sender
func (s *SendGridSender) GetName() string {
	return "sendgrid"
}

// Send delivers htmlBody with a plain-text alternative
func (s *SendGridSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), PlainText(htmlBody), htmlBody)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected email: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}

	s.logger.WithFields(logrus.Fields{
		"to":         to,
		"subject":    subject,
		"message_id": resp.Headers["X-Message-Id"],
	}).Info("Email sent")
	return nil
}

// LogSender writes messages to the log instead of sending them (dev mode)
type LogSender struct {
	logger *logrus.Logger
}

// NewLogSender creates a logging-only sender
func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// GetName returns the name of this sender
func (s *LogSender) GetName() string {
	return "log"
}

// Send logs the message
func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"body":    PlainText(htmlBody),
	}).Info("DEV MODE: email not sent")
	return nil
}

var (
	tagRegex        = regexp.MustCompile(`<[^>]*>`)
	blankLinesRegex = regexp.MustCompile(`\n\s*\n+`)
)

// PlainText strips markup from an HTML body
func PlainText(htmlBody string) string {
	text := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n", "</tr>", "\n").Replace(htmlBody)
	text = tagRegex.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
