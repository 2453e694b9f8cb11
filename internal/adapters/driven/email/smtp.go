package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Notifier = (*SMTPNotifier)(nil)
	_ driven.Notifier = (*LogNotifier)(nil)
)

// SMTPConfig holds SMTP delivery settings.
type SMTPConfig struct {
	Host     string
	Port     int // default: 587
	Username string
	Password string
	From     string
	Timeout  time.Duration // default: 15s
}

// SMTPNotifier sends messages through an SMTP relay. A new connection is
// opened per message; workers send rarely enough that pooling is not needed.
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTPNotifier validates cfg and creates a notifier.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPNotifier{cfg: cfg}, nil
}

// Send delivers msg. Every failure wraps domain.ErrNotificationDelivery.
func (n *SMTPNotifier) Send(ctx context.Context, msg *domain.Message) error {
	m, err := n.build(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationDelivery, err)
	}

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTimeout(n.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationDelivery, err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: send to %s: %w", domain.ErrNotificationDelivery, msg.To, err)
	}
	return nil
}

func (n *SMTPNotifier) build(msg *domain.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	for _, a := range msg.Attachments {
		m.AttachReadSeeker(a.Filename, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(a.ContentType)))
	}
	return m, nil
}

// LogNotifier records messages in the log instead of sending them. It is
// used when no SMTP host is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the message envelope.
func (n *LogNotifier) Send(_ context.Context, msg *domain.Message) error {
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Filename
	}
	n.logger.Info("email not sent: no smtp host configured",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", names,
	)
	return nil
}
